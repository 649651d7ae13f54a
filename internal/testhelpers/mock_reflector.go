package testhelpers

import (
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// LinkRequest is one call to MockReflector.Link
type LinkRequest struct {
	Owner   gateway.LinkOwner
	Local   string
	Target  string
	Address string
}

// WrittenHeader is a header written to a reflector
type WrittenHeader struct {
	Owner     string
	Header    *dstar.Header
	Direction dstar.Direction
}

// WrittenFrame is a frame written to a reflector
type WrittenFrame struct {
	Owner     string
	Frame     *dstar.Frame
	Direction dstar.Direction
}

// MockReflector records every call made to a reflector protocol
type MockReflector struct {
	Protocol dstar.Protocol

	mu            sync.RWMutex
	links         []LinkRequest
	unlinks       []string
	unlinkExcepts []string
	unlinkTargets []string
	relinks       []string
	headers       []WrittenHeader
	frames        []WrittenFrame
}

// NewMockReflector creates a new mock reflector
func NewMockReflector(p dstar.Protocol) *MockReflector {
	return &MockReflector{Protocol: p}
}

func (m *MockReflector) Link(owner gateway.LinkOwner, local, target, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, LinkRequest{Owner: owner, Local: local, Target: target, Address: address})
}

func (m *MockReflector) Unlink(owner gateway.LinkOwner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlinks = append(m.unlinks, owner.RepeaterCallsign())
}

func (m *MockReflector) UnlinkExcept(_ gateway.LinkOwner, keep string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlinkExcepts = append(m.unlinkExcepts, keep)
}

func (m *MockReflector) UnlinkTarget(_ gateway.LinkOwner, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlinkTargets = append(m.unlinkTargets, target)
}

func (m *MockReflector) Relink(_ gateway.LinkOwner, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relinks = append(m.relinks, target)
}

func (m *MockReflector) WriteHeader(owner gateway.LinkOwner, h *dstar.Header, dir dstar.Direction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = append(m.headers, WrittenHeader{Owner: owner.RepeaterCallsign(), Header: h, Direction: dir})
}

func (m *MockReflector) WriteFrame(owner gateway.LinkOwner, f *dstar.Frame, dir dstar.Direction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, WrittenFrame{Owner: owner.RepeaterCallsign(), Frame: f, Direction: dir})
}

// Links returns the link requests made so far
func (m *MockReflector) Links() []LinkRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LinkRequest(nil), m.links...)
}

// LastLink returns the most recent link request
func (m *MockReflector) LastLink() (LinkRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.links) == 0 {
		return LinkRequest{}, false
	}
	return m.links[len(m.links)-1], true
}

// UnlinkCount returns how many times Unlink was called
func (m *MockReflector) UnlinkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.unlinks)
}

// UnlinkExcepts returns the keep targets passed to UnlinkExcept
func (m *MockReflector) UnlinkExcepts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.unlinkExcepts...)
}

// UnlinkTargets returns the targets passed to UnlinkTarget
func (m *MockReflector) UnlinkTargets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.unlinkTargets...)
}

// Relinks returns the targets passed to Relink
func (m *MockReflector) Relinks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.relinks...)
}

// Headers returns the headers written in one direction
func (m *MockReflector) Headers(dir dstar.Direction) []WrittenHeader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WrittenHeader
	for _, h := range m.headers {
		if h.Direction == dir {
			out = append(out, h)
		}
	}
	return out
}

// Frames returns the frames written in one direction
func (m *MockReflector) Frames(dir dstar.Direction) []WrittenFrame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WrittenFrame
	for _, f := range m.frames {
		if f.Direction == dir {
			out = append(out, f)
		}
	}
	return out
}

// Reset clears everything recorded
func (m *MockReflector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = nil
	m.unlinks = nil
	m.unlinkExcepts = nil
	m.unlinkTargets = nil
	m.relinks = nil
	m.headers = nil
	m.frames = nil
}
