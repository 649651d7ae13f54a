package standalone

import (
	"sort"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Reflector is a loopback reflector protocol. Every link request succeeds
// and every teardown is reported back as a non-recoverable failure, the way
// a real protocol handler reports them. Traffic is counted and dropped.
type Reflector struct {
	protocol dstar.Protocol
	poster   Poster
	log      *logger.Logger

	mu      sync.Mutex
	links   map[gateway.LinkOwner]map[string]bool
	headers int
	frames  int
}

var _ gateway.Reflector = (*Reflector)(nil)

// NewReflector creates a reflector for protocol p
func NewReflector(p dstar.Protocol, poster Poster, log *logger.Logger) *Reflector {
	return &Reflector{
		protocol: p,
		poster:   poster,
		log:      log.WithComponent("reflector").With(logger.String("protocol", p.String())),
		links:    make(map[gateway.LinkOwner]map[string]bool),
	}
}

func (r *Reflector) Link(owner gateway.LinkOwner, local, target, address string) {
	r.mu.Lock()
	if r.links[owner] == nil {
		r.links[owner] = make(map[string]bool)
	}
	r.links[owner][target] = true
	r.mu.Unlock()

	r.log.Info("Link established",
		logger.String("repeater", local),
		logger.String("target", target),
		logger.String("address", address))

	p := r.protocol
	r.poster.Post(func(*gateway.Registry) { owner.LinkUp(p, target) })
}

func (r *Reflector) Unlink(owner gateway.LinkOwner) {
	r.drop(owner, func(string) bool { return true })
}

func (r *Reflector) UnlinkExcept(owner gateway.LinkOwner, keep string) {
	r.drop(owner, func(t string) bool { return t != keep })
}

func (r *Reflector) UnlinkTarget(owner gateway.LinkOwner, target string) {
	r.drop(owner, func(t string) bool { return t == target })
}

// Relink moves the link of owner to target in place
func (r *Reflector) Relink(owner gateway.LinkOwner, target string) {
	r.mu.Lock()
	r.links[owner] = map[string]bool{target: true}
	r.mu.Unlock()

	r.log.Info("Relinked",
		logger.String("repeater", owner.RepeaterCallsign()),
		logger.String("target", target))

	p := r.protocol
	r.poster.Post(func(*gateway.Registry) { owner.LinkUp(p, target) })
}

func (r *Reflector) WriteHeader(owner gateway.LinkOwner, h *dstar.Header, dir dstar.Direction) {
	r.mu.Lock()
	r.headers++
	r.mu.Unlock()

	r.log.Debug("Header",
		logger.String("repeater", owner.RepeaterCallsign()),
		logger.String("my", h.MyCall1),
		logger.String("your", h.YourCall),
		logger.String("direction", dir.String()))
}

func (r *Reflector) WriteFrame(gateway.LinkOwner, *dstar.Frame, dstar.Direction) {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

// Targets returns the targets currently linked by owner
func (r *Reflector) Targets(owner gateway.LinkOwner) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for t := range r.links[owner] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Traffic returns the number of headers and frames written
func (r *Reflector) Traffic() (headers, frames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers, r.frames
}

func (r *Reflector) drop(owner gateway.LinkOwner, match func(target string) bool) {
	r.mu.Lock()
	var dropped []string
	for t := range r.links[owner] {
		if match(t) {
			dropped = append(dropped, t)
			delete(r.links[owner], t)
		}
	}
	if len(r.links[owner]) == 0 {
		delete(r.links, owner)
	}
	r.mu.Unlock()

	sort.Strings(dropped)
	p := r.protocol
	for _, t := range dropped {
		r.log.Info("Link dropped",
			logger.String("repeater", owner.RepeaterCallsign()),
			logger.String("target", t))
		target := t
		r.poster.Post(func(*gateway.Registry) { owner.LinkFailed(p, target, false) })
	}
}
