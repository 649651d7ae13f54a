package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

var (
	// ErrRegistryFull is returned by Add when every slot is taken
	ErrRegistryFull = errors.New("no space for repeater")
	// ErrUnknownRepeater is returned when a callsign matches no session
	ErrUnknownRepeater = errors.New("unknown repeater")
)

// Registry is the fixed-capacity table of repeater sessions. It is not safe
// for concurrent use; the Engine serialises every call.
type Registry struct {
	cfg      Config
	features Features
	gateway  string
	slots    []*Session

	reflectors map[dstar.Protocol]Reflector
	directory  Directory
	cache      Cache
	restrict   RestrictList
	g2         G2Router
	groups     GroupRouter
	journal    Journal
	recorder   Recorder

	log *logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	capacity := cfg.MaxRepeaters
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	log := cfg.Logger
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}

	r := &Registry{
		cfg:        cfg,
		features:   cfg.Features,
		gateway:    cfg.Gateway,
		slots:      make([]*Session, capacity),
		reflectors: make(map[dstar.Protocol]Reflector),
		directory:  cfg.Directory,
		cache:      cfg.Cache,
		restrict:   cfg.Restrict,
		g2:         cfg.G2,
		groups:     cfg.Groups,
		journal:    cfg.Journal,
		recorder:   cfg.Recorder,
		log:        log.WithComponent("gateway"),
	}

	for _, p := range []dstar.Protocol{dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS} {
		if ref, ok := cfg.Reflectors[p]; ok && ref != nil {
			r.reflectors[p] = ref
		} else {
			r.reflectors[p] = nopReflector{}
		}
	}
	if r.cache == nil {
		r.cache = nopCache{}
	}
	if r.g2 == nil {
		r.g2 = nopG2{}
	}
	if r.groups == nil {
		r.groups = nopGroups{}
	}
	if r.journal == nil {
		r.journal = nopJournal{}
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}

	return r
}

// Capacity returns the number of slots
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Len returns the number of sessions
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Add creates a session in the first free slot
func (r *Registry) Add(sc SessionConfig) (*Session, error) {
	for i, s := range r.slots {
		if s == nil {
			sess := newSession(r, i, sc)
			r.slots[i] = sess
			r.log.Info("Repeater added",
				logger.String("repeater", sess.rptCallsign),
				logger.Int("index", i),
				logger.String("hardware", sc.Hardware.String()))
			return sess, nil
		}
	}

	r.log.Error("Cannot add repeater, no space", logger.String("callsign", sc.Callsign))
	return nil, fmt.Errorf("add %s: %w", sc.Callsign, ErrRegistryFull)
}

// At returns the session in slot i, or nil
func (r *Registry) At(i int) *Session {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

// ForEach calls fn for every session in slot order
func (r *Registry) ForEach(fn func(s *Session)) {
	for _, s := range r.slots {
		if s != nil {
			fn(s)
		}
	}
}

// FindByHeader finds the DV session a header from RF belongs to
func (r *Registry) FindByHeader(h *dstar.Header) *Session {
	for _, s := range r.slots {
		if s != nil && s.mode == dstar.ModeDV && s.address == h.Address && s.rptCallsign == h.RptCall1 {
			return s
		}
	}
	return nil
}

// FindByFrameID finds the DV session whose active (or busy) transmission
// carries id.
func (r *Registry) FindByFrameID(id uint16, busy bool) *Session {
	for _, s := range r.slots {
		if s == nil || s.mode != dstar.ModeDV {
			continue
		}
		if !busy && s.repeaterID == id {
			return s
		}
		if busy && s.busyID == id {
			return s
		}
	}
	return nil
}

// FindByRFSource finds a session by its repeater address and port
func (r *Registry) FindByRFSource(address string, port int) *Session {
	for _, s := range r.slots {
		if s != nil && s.address == address && s.port == port {
			return s
		}
	}
	return nil
}

// FindByCallsign finds a session by full repeater callsign within a mode
func (r *Registry) FindByCallsign(callsign string, mode dstar.Mode) *Session {
	for _, s := range r.slots {
		if s != nil && s.mode == mode && s.rptCallsign == callsign {
			return s
		}
	}
	return nil
}

// FindAnyInMode returns the first session in the given mode
func (r *Registry) FindAnyInMode(mode dstar.Mode) *Session {
	for _, s := range r.slots {
		if s != nil && s.mode == mode {
			return s
		}
	}
	return nil
}

// List returns the repeater callsigns of every session in mode
func (r *Registry) List(mode dstar.Mode) []string {
	var out []string
	for _, s := range r.slots {
		if s != nil && s.mode == mode {
			out = append(out, s.rptCallsign)
		}
	}
	return out
}

// Snapshots returns the link state of every session
func (r *Registry) Snapshots() []Snapshot {
	var out []Snapshot
	r.ForEach(func(s *Session) {
		out = append(out, s.Snapshot())
	})
	return out
}

// Startup reports each repeater to the directory and performs startup links
func (r *Registry) Startup() {
	r.ForEach(func(s *Session) { s.startup() })
}

// Clock advances every session by d
func (r *Registry) Clock(d time.Duration) {
	r.ForEach(func(s *Session) { s.clock(d) })
}

// ResolveUser delivers a directory user lookup reply. An empty address
// means not found.
func (r *Registry) ResolveUser(user, repeater, gateway, address string) {
	r.ForEach(func(s *Session) { s.resolveUser(user, repeater, gateway, address) })
}

// ResolveRepeater delivers a directory repeater lookup reply. An empty
// address means not found.
func (r *Registry) ResolveRepeater(repeater, gateway, address string, p dstar.Protocol) {
	r.ForEach(func(s *Session) { s.resolveRepeater(repeater, gateway, address, p) })
}

// PollAll passes controller poll text to every Icom session
func (r *Registry) PollAll(text string) {
	r.ForEach(func(s *Session) {
		if s.hwType == dstar.HardwareIcom {
			s.ProcessPoll(text)
		}
	})
}

// WriteStatus sends a status message to every repeater
func (r *Registry) WriteStatus(text string) {
	r.ForEach(func(s *Session) { s.transport.WriteStatus(text) })
}

// Close unlinks every session and empties the table
func (r *Registry) Close() {
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		s.shutdown()
		r.slots[i] = nil
	}
}

func (r *Registry) reflector(p dstar.Protocol) Reflector {
	if p == dstar.ProtocolLoopback {
		p = dstar.ProtocolDCS
	}
	if ref, ok := r.reflectors[p]; ok {
		return ref
	}
	return nopReflector{}
}

func (r *Registry) enabled(p dstar.Protocol) bool {
	switch p {
	case dstar.ProtocolDExtra:
		return r.features.DExtra
	case dstar.ProtocolDPlus:
		return r.features.DPlus
	case dstar.ProtocolDCS:
		return r.features.DCS
	case dstar.ProtocolLoopback:
		return true
	default:
		return false
	}
}

func (r *Registry) isRestricted(callsign string) bool {
	return r.restrict != nil && r.restrict.IsRestricted(callsign)
}
