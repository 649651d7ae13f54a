package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// LinkState is the last link state reported for a repeater
type LinkState struct {
	Status dstar.LinkStatus
	Target string
}

// repeaterCounters holds the traffic counters of one repeater
type repeaterCounters struct {
	headers uint64
	frames  uint64
	silence uint64
	errors  uint64
}

// Collector collects gateway metrics. It implements gateway.Recorder.
type Collector struct {
	mu sync.RWMutex

	repeaters map[string]*repeaterCounters
	links     map[string]LinkState

	linkChanges uint64
	queries     map[string]uint64
	timeouts    map[string]uint64
	routes      map[string]uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		repeaters: make(map[string]*repeaterCounters),
		links:     make(map[string]LinkState),
		queries:   make(map[string]uint64),
		timeouts:  make(map[string]uint64),
		routes:    make(map[string]uint64),
	}
}

func (c *Collector) counters(repeater string) *repeaterCounters {
	key := strings.TrimSpace(repeater)
	rc, ok := c.repeaters[key]
	if !ok {
		rc = &repeaterCounters{}
		c.repeaters[key] = rc
	}
	return rc
}

// HeaderReceived records an RF header
func (c *Collector) HeaderReceived(repeater string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counters(repeater).headers++
}

// FrameReceived records an RF voice frame
func (c *Collector) FrameReceived(repeater string, silence bool, errors uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rc := c.counters(repeater)
	rc.frames++
	if silence {
		rc.silence++
	}
	rc.errors += uint64(errors)
}

// LinkStateChanged records the new link state of a repeater
func (c *Collector) LinkStateChanged(repeater string, status dstar.LinkStatus, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.linkChanges++
	c.links[strings.TrimSpace(repeater)] = LinkState{Status: status, Target: strings.TrimSpace(target)}
}

// DirectoryQuery records a lookup sent to the directory
func (c *Collector) DirectoryQuery(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries[kind]++
}

// DirectoryTimeout records a lookup the directory did not answer
func (c *Collector) DirectoryTimeout(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeouts[kind]++
}

// RouteSelected records the route chosen for an RF transmission
func (c *Collector) RouteSelected(repeater string, route dstar.RouteStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.routes[route.String()]++
}

// Reset clears the link states (useful for testing). Counters are
// cumulative and kept.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.links = make(map[string]LinkState)
}

// Getters for metrics

// GetHeaders returns the headers received on a repeater
func (c *Collector) GetHeaders(repeater string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rc, ok := c.repeaters[strings.TrimSpace(repeater)]; ok {
		return rc.headers
	}
	return 0
}

// GetFrames returns the frames, silent frames and frame errors of a repeater
func (c *Collector) GetFrames(repeater string) (frames, silence, errors uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rc, ok := c.repeaters[strings.TrimSpace(repeater)]; ok {
		return rc.frames, rc.silence, rc.errors
	}
	return 0, 0, 0
}

// GetLinkState returns the last reported link state of a repeater
func (c *Collector) GetLinkState(repeater string) (LinkState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ls, ok := c.links[strings.TrimSpace(repeater)]
	return ls, ok
}

// GetLinkChanges returns the number of link state changes
func (c *Collector) GetLinkChanges() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.linkChanges
}

// GetLinkedRepeaters returns the number of repeaters with a live link
func (c *Collector) GetLinkedRepeaters() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ls := range c.links {
		if ls.Status.IsLinked() {
			n++
		}
	}
	return n
}

// GetDirectoryQueries returns the lookups sent for kind
func (c *Collector) GetDirectoryQueries(kind string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queries[kind]
}

// GetDirectoryTimeouts returns the unanswered lookups for kind
func (c *Collector) GetDirectoryTimeouts(kind string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeouts[kind]
}

// GetRoutes returns how often a route was selected
func (c *Collector) GetRoutes(route dstar.RouteStatus) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.routes[route.String()]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
