package testhelpers

import (
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// HeardReport is one heard report sent to the directory
type HeardReport struct {
	Info        gateway.HeardInfo
	User        string
	Repeater    string
	Destination string
	Text        string
	Frames      uint
	Silence     uint
	Errors      uint
	Stats       bool
}

// WatchdogKick is one KickWatchdog call
type WatchdogKick struct {
	Callsign string
	Text     string
}

// MockDirectory records lookups and reports sent to the directory service
type MockDirectory struct {
	mu        sync.RWMutex
	users     []string
	repeaters []string
	heard     []HeardReport
	kicks     []WatchdogKick
	qrg       []string
	qth       []string
}

// NewMockDirectory creates a new mock directory
func NewMockDirectory() *MockDirectory {
	return &MockDirectory{}
}

func (m *MockDirectory) FindUser(callsign string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, callsign)
}

func (m *MockDirectory) FindRepeater(callsign string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeaters = append(m.repeaters, callsign)
}

func (m *MockDirectory) SendHeard(user, repeater string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heard = append(m.heard, HeardReport{User: user, Repeater: repeater})
}

func (m *MockDirectory) SendHeardWithText(h gateway.HeardInfo, destination, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heard = append(m.heard, HeardReport{Info: h, User: h.MyCall1, Repeater: h.RptCall1, Destination: destination, Text: text})
}

func (m *MockDirectory) SendHeardWithStats(h gateway.HeardInfo, frames, silence, errors uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heard = append(m.heard, HeardReport{
		Info:     h,
		User:     h.MyCall1,
		Repeater: h.RptCall1,
		Frames:   frames,
		Silence:  silence,
		Errors:   errors,
		Stats:    true,
	})
}

func (m *MockDirectory) KickWatchdog(callsign, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kicks = append(m.kicks, WatchdogKick{Callsign: callsign, Text: text})
}

func (m *MockDirectory) ReportQRG(callsign string, _, _, _, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qrg = append(m.qrg, callsign)
}

func (m *MockDirectory) ReportQTH(callsign string, _, _ float64, _, _, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qth = append(m.qth, callsign)
}

// UserLookups returns the callsigns passed to FindUser
func (m *MockDirectory) UserLookups() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.users...)
}

// RepeaterLookups returns the callsigns passed to FindRepeater
func (m *MockDirectory) RepeaterLookups() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.repeaters...)
}

// Heard returns every heard report
func (m *MockDirectory) Heard() []HeardReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HeardReport(nil), m.heard...)
}

// Stats returns only the heard reports that carried statistics
func (m *MockDirectory) Stats() []HeardReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []HeardReport
	for _, h := range m.heard {
		if h.Stats {
			out = append(out, h)
		}
	}
	return out
}

// Kicks returns the watchdog kicks
func (m *MockDirectory) Kicks() []WatchdogKick {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]WatchdogKick(nil), m.kicks...)
}

// QRGReports returns the callsigns whose frequency was reported
func (m *MockDirectory) QRGReports() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.qrg...)
}

// QTHReports returns the callsigns whose location was reported
func (m *MockDirectory) QTHReports() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.qth...)
}
