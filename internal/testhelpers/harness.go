package testhelpers

import (
	"io"
	"sync"
	"testing"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Harness is a registry wired to recording collaborators
type Harness struct {
	Registry  *gateway.Registry
	DExtra    *MockReflector
	DPlus     *MockReflector
	DCS       *MockReflector
	Directory *MockDirectory
	Cache     *MockCache
	Restrict  *MockRestrict
	G2        *MockG2
	Groups    *MockGroups
	Journal   *MockJournal
	Recorder  *MockRecorder

	mu         sync.Mutex
	calls      map[string]*MockCall
	units      map[string]*MockUnits
	dtmf       []*MockDTMF
	transports map[string]*MockTransport
}

type harnessOptions struct {
	features    gateway.Features
	noDirectory bool
	restricted  []string
	groups      []string
	capacity    int
}

// HarnessOption customises NewHarness
type HarnessOption func(*harnessOptions)

// WithFeatures replaces the default feature set
func WithFeatures(f gateway.Features) HarnessOption {
	return func(o *harnessOptions) { o.features = f }
}

// WithoutDirectory leaves the registry with no directory
func WithoutDirectory() HarnessOption {
	return func(o *harnessOptions) { o.noDirectory = true }
}

// WithRestricted marks callsigns as restricted
func WithRestricted(callsigns ...string) HarnessOption {
	return func(o *harnessOptions) { o.restricted = append(o.restricted, callsigns...) }
}

// WithGroups creates StarNet groups
func WithGroups(groups ...string) HarnessOption {
	return func(o *harnessOptions) { o.groups = append(o.groups, groups...) }
}

// WithCapacity sets the number of registry slots
func WithCapacity(n int) HarnessOption {
	return func(o *harnessOptions) { o.capacity = n }
}

// NewHarness creates a registry for gateway TestGateway with every
// reflector protocol enabled.
func NewHarness(t testing.TB, opts ...HarnessOption) *Harness {
	t.Helper()

	o := harnessOptions{features: gateway.DefaultFeatures()}
	o.features.DPlus = true
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{
		DExtra:     NewMockReflector(dstar.ProtocolDExtra),
		DPlus:      NewMockReflector(dstar.ProtocolDPlus),
		DCS:        NewMockReflector(dstar.ProtocolDCS),
		Directory:  NewMockDirectory(),
		Cache:      NewMockCache(),
		Restrict:   NewMockRestrict(o.restricted...),
		G2:         NewMockG2(),
		Groups:     NewMockGroups(o.groups...),
		Journal:    NewMockJournal(),
		Recorder:   NewMockRecorder(),
		calls:      make(map[string]*MockCall),
		units:      make(map[string]*MockUnits),
		transports: make(map[string]*MockTransport),
	}

	cfg := gateway.Config{
		Gateway:      TestGateway,
		MaxRepeaters: o.capacity,
		Features:     o.features,
		Reflectors: map[dstar.Protocol]gateway.Reflector{
			dstar.ProtocolDExtra: h.DExtra,
			dstar.ProtocolDPlus:  h.DPlus,
			dstar.ProtocolDCS:    h.DCS,
		},
		Cache:    h.Cache,
		Restrict: h.Restrict,
		G2:       h.G2,
		Groups:   h.Groups,
		Journal:  h.Journal,
		Recorder: h.Recorder,
		NewCallHandler: func(owner gateway.CallOwner) gateway.CallHandler {
			c := NewMockCall(owner)
			h.mu.Lock()
			h.calls[owner.RepeaterCallsign()] = c
			h.mu.Unlock()
			return c
		},
		NewDTMF: func() gateway.DTMFDecoder {
			d := NewMockDTMF()
			h.mu.Lock()
			h.dtmf = append(h.dtmf, d)
			h.mu.Unlock()
			return d
		},
		NewUnits: func(s *gateway.Session) gateway.Units {
			u := NewMockUnits()
			h.mu.Lock()
			h.units[s.RepeaterCallsign()] = u
			h.mu.Unlock()
			return u.Units()
		},
		Logger: logger.New(logger.Config{Level: "error", Output: io.Discard}),
	}
	if !o.noDirectory {
		cfg.Directory = h.Directory
	}

	h.Registry = gateway.NewRegistry(cfg)
	return h
}

// AddRepeater adds a session with a recording transport. Callsign defaults
// to "GB7XX" and band to "B".
func (h *Harness) AddRepeater(t testing.TB, sc gateway.SessionConfig) *gateway.Session {
	t.Helper()

	if sc.Callsign == "" {
		sc.Callsign = "GB7XX"
	}
	if sc.Band == "" {
		sc.Band = "B"
	}
	tr := NewMockTransport()
	sc.Transport = tr

	s, err := h.Registry.Add(sc)
	if err != nil {
		t.Fatalf("add repeater: %v", err)
	}

	h.mu.Lock()
	h.transports[s.RepeaterCallsign()] = tr
	h.mu.Unlock()
	return s
}

// Transport returns the transport of s
func (h *Harness) Transport(s *gateway.Session) *MockTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transports[s.RepeaterCallsign()]
}

// Call returns the CCS handler of s
func (h *Harness) Call(s *gateway.Session) *MockCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[s.RepeaterCallsign()]
}

// Units returns the announcement units of s
func (h *Harness) Units(s *gateway.Session) *MockUnits {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.units[s.RepeaterCallsign()]
}

// DTMF returns the decoder of the session added n-th, counting from zero
func (h *Harness) DTMF(n int) *MockDTMF {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dtmf[n]
}

// Reflector returns the mock for p
func (h *Harness) Reflector(p dstar.Protocol) *MockReflector {
	switch p {
	case dstar.ProtocolDPlus:
		return h.DPlus
	case dstar.ProtocolDCS, dstar.ProtocolLoopback:
		return h.DCS
	default:
		return h.DExtra
	}
}
