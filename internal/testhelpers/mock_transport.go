package testhelpers

import (
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// MockTransport records traffic sent to a repeater
type MockTransport struct {
	mu       sync.RWMutex
	headers  []*dstar.Header
	frames   []*dstar.Frame
	texts    []gateway.Status
	statuses []string
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) WriteHeader(h *dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = append(m.headers, h)
}

func (m *MockTransport) WriteFrame(f *dstar.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
}

func (m *MockTransport) WriteText(st gateway.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, st)
}

func (m *MockTransport) WriteStatus(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, text)
}

// Headers returns the headers sent to the repeater
func (m *MockTransport) Headers() []*dstar.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*dstar.Header(nil), m.headers...)
}

// Frames returns the frames sent to the repeater
func (m *MockTransport) Frames() []*dstar.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*dstar.Frame(nil), m.frames...)
}

// Texts returns the status events sent to the repeater
func (m *MockTransport) Texts() []gateway.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gateway.Status(nil), m.texts...)
}

// LastText returns the most recent status event
func (m *MockTransport) LastText() (gateway.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.texts) == 0 {
		return gateway.Status{}, false
	}
	return m.texts[len(m.texts)-1], true
}

// Statuses returns the status messages sent to the repeater
func (m *MockTransport) Statuses() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.statuses...)
}

// Reset clears everything recorded
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = nil
	m.frames = nil
	m.texts = nil
	m.statuses = nil
}
