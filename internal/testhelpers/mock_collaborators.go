package testhelpers

import (
	"strings"
	"sync"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// MockCache is an in-memory directory cache
type MockCache struct {
	mu        sync.RWMutex
	repeaters map[string]gateway.RepeaterEntry
	users     map[string]gateway.UserEntry
}

// NewMockCache creates an empty cache
func NewMockCache() *MockCache {
	return &MockCache{
		repeaters: make(map[string]gateway.RepeaterEntry),
		users:     make(map[string]gateway.UserEntry),
	}
}

// AddRepeater stores a repeater or reflector entry
func (m *MockCache) AddRepeater(e gateway.RepeaterEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeaters[e.Repeater] = e
}

// AddUser stores a user entry
func (m *MockCache) AddUser(e gateway.UserEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[e.User] = e
}

func (m *MockCache) FindRepeater(callsign string) (gateway.RepeaterEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.repeaters[callsign]
	return e, ok
}

func (m *MockCache) FindUser(callsign string) (gateway.UserEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.users[callsign]
	return e, ok
}

// MockRestrict is a fixed restricted-callsign list
type MockRestrict struct {
	mu    sync.RWMutex
	calls map[string]bool
}

// NewMockRestrict creates a list holding the given callsigns
func NewMockRestrict(callsigns ...string) *MockRestrict {
	m := &MockRestrict{calls: make(map[string]bool)}
	for _, c := range callsigns {
		m.calls[strings.TrimSpace(c)] = true
	}
	return m
}

func (m *MockRestrict) IsRestricted(callsign string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[strings.TrimSpace(callsign)]
}

// MockG2 records directory-routed traffic
type MockG2 struct {
	mu      sync.RWMutex
	headers []*dstar.Header
	frames  []*dstar.Frame
}

// NewMockG2 creates a new mock G2 router
func NewMockG2() *MockG2 {
	return &MockG2{}
}

func (m *MockG2) WriteHeader(h *dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = append(m.headers, h)
}

func (m *MockG2) WriteFrame(f *dstar.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
}

// Headers returns the routed headers
func (m *MockG2) Headers() []*dstar.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*dstar.Header(nil), m.headers...)
}

// Frames returns the routed frames
func (m *MockG2) Frames() []*dstar.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*dstar.Frame(nil), m.frames...)
}

// MockGroups is a StarNet router with a fixed set of group callsigns
type MockGroups struct {
	mu      sync.RWMutex
	groups  map[string]bool
	headers map[string]int
	frames  map[string]int
}

// NewMockGroups creates a router that knows the given groups
func NewMockGroups(groups ...string) *MockGroups {
	m := &MockGroups{
		groups:  make(map[string]bool),
		headers: make(map[string]int),
		frames:  make(map[string]int),
	}
	for _, g := range groups {
		m.groups[g] = true
	}
	return m
}

func (m *MockGroups) Find(h *dstar.Header) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.groups[h.YourCall] {
		return h.YourCall, true
	}
	return "", false
}

func (m *MockGroups) WriteHeader(group string, _ *dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[group]++
}

func (m *MockGroups) WriteFrame(group string, _ *dstar.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.groups[group] {
		return false
	}
	m.frames[group]++
	return true
}

// Remove drops a group
func (m *MockGroups) Remove(group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, group)
}

// HeaderCount returns how many headers a group received
func (m *MockGroups) HeaderCount(group string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headers[group]
}

// FrameCount returns how many frames a group received
func (m *MockGroups) FrameCount(group string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames[group]
}

// CallRequest is one StartLink or StopLink call
type CallRequest struct {
	Target string
	User   string
	Via    string
}

// MockCall is a CCS handler whose connection state is set by the test
type MockCall struct {
	Owner gateway.CallOwner

	mu        sync.RWMutex
	status    gateway.CallStatus
	connects  int
	starts    []CallRequest
	stops     []CallRequest
	unlinks   []string
	reflector string
	headers   int
	frames    int
}

// NewMockCall creates a disconnected CCS handler for owner
func NewMockCall(owner gateway.CallOwner) *MockCall {
	return &MockCall{Owner: owner}
}

// SetStatus sets the CCS connection state
func (m *MockCall) SetStatus(st gateway.CallStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = st
}

func (m *MockCall) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
}

func (m *MockCall) Status() gateway.CallStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *MockCall) StartLink(target, user, via string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, CallRequest{Target: target, User: user, Via: via})
}

func (m *MockCall) StopLink(user, via string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops = append(m.stops, CallRequest{User: user, Via: via})
}

func (m *MockCall) Unlink(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlinks = append(m.unlinks, target)
}

func (m *MockCall) SetReflector(callsign string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reflector = callsign
}

func (m *MockCall) WriteHeard(*dstar.Header) {}

func (m *MockCall) WriteHeader(*dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers++
}

func (m *MockCall) WriteFrame(*dstar.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

// Connects returns how many times Connect was called
func (m *MockCall) Connects() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connects
}

// Starts returns the StartLink calls
func (m *MockCall) Starts() []CallRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CallRequest(nil), m.starts...)
}

// Stops returns the StopLink calls
func (m *MockCall) Stops() []CallRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CallRequest(nil), m.stops...)
}

// Reflector returns the last reflector passed to SetReflector
func (m *MockCall) Reflector() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reflector
}

// MockUnit implements every announcement unit interface and counts calls
type MockUnit struct {
	mu         sync.RWMutex
	cancels    int
	sends      int
	ends       int
	headers    int
	frames     int
	clocked    time.Duration
	status     []gateway.Status
	tempStatus []gateway.Status
}

func (m *MockUnit) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
}

func (m *MockUnit) Clock(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clocked += d
}

func (m *MockUnit) WriteHeader(*dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers++
}

func (m *MockUnit) WriteFrame(*dstar.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

func (m *MockUnit) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
}

func (m *MockUnit) SendStatus()       { m.send() }
func (m *MockUnit) SendAnnouncement() { m.send() }
func (m *MockUnit) SendVersion()      { m.send() }

func (m *MockUnit) send() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
}

func (m *MockUnit) SetStatus(st gateway.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, st)
}

func (m *MockUnit) SetTempStatus(st gateway.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempStatus = append(m.tempStatus, st)
}

// Sends returns how many announcements were played
func (m *MockUnit) Sends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sends
}

// Cancels returns how many times the unit was cancelled
func (m *MockUnit) Cancels() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancels
}

// Ends returns how many times End was called
func (m *MockUnit) Ends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ends
}

// HeaderCount returns how many headers the unit received
func (m *MockUnit) HeaderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headers
}

// FrameCount returns how many frames the unit received
func (m *MockUnit) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

// Clocked returns the total time the unit was clocked
func (m *MockUnit) Clocked() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clocked
}

// LastStatus returns the most recent permanent status
func (m *MockUnit) LastStatus() (gateway.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.status) == 0 {
		return gateway.Status{}, false
	}
	return m.status[len(m.status)-1], true
}

// TempStatuses returns the temporary statuses
func (m *MockUnit) TempStatuses() []gateway.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gateway.Status(nil), m.tempStatus...)
}

// MockUnits is the set of announcement units of one session
type MockUnits struct {
	Echo    *MockUnit
	Info    *MockUnit
	Message *MockUnit
	Weather *MockUnit
	Version *MockUnit
}

// NewMockUnits creates a fresh set of units
func NewMockUnits() *MockUnits {
	return &MockUnits{
		Echo:    &MockUnit{},
		Info:    &MockUnit{},
		Message: &MockUnit{},
		Weather: &MockUnit{},
		Version: &MockUnit{},
	}
}

// Units returns the set in the form a session takes
func (m *MockUnits) Units() gateway.Units {
	return gateway.Units{
		Echo:    m.Echo,
		Info:    m.Info,
		Message: m.Message,
		Weather: m.Weather,
		Version: m.Version,
	}
}

// MockDTMF is a decoder that returns queued commands. Each queued command is
// reported on the next decoded frame.
type MockDTMF struct {
	mu      sync.Mutex
	queued  []string
	ready   string
	decoded int
}

// NewMockDTMF creates an idle decoder
func NewMockDTMF() *MockDTMF {
	return &MockDTMF{}
}

// Queue arranges for cmd to be decoded from the next frame
func (m *MockDTMF) Queue(cmd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, cmd)
}

func (m *MockDTMF) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ""
}

func (m *MockDTMF) Decode([]byte, bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decoded++
	if len(m.queued) == 0 {
		return false
	}
	m.ready = m.queued[0]
	m.queued = m.queued[1:]
	return true
}

func (m *MockDTMF) HasCommand() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready != ""
}

func (m *MockDTMF) Translate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := m.ready
	m.ready = ""
	return cmd
}

// Decoded returns how many frames were passed to Decode
func (m *MockDTMF) Decoded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoded
}

// MockJournal records journal entries
type MockJournal struct {
	mu      sync.RWMutex
	headers int
	records []gateway.TransmissionRecord
}

// NewMockJournal creates an empty journal
func NewMockJournal() *MockJournal {
	return &MockJournal{}
}

func (m *MockJournal) LogHeader(string, *dstar.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers++
}

func (m *MockJournal) LogTransmission(rec gateway.TransmissionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// HeaderCount returns how many headers were logged
func (m *MockJournal) HeaderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headers
}

// Records returns the logged transmissions
func (m *MockJournal) Records() []gateway.TransmissionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gateway.TransmissionRecord(nil), m.records...)
}

// LinkChange is one LinkStateChanged event
type LinkChange struct {
	Repeater string
	Status   dstar.LinkStatus
	Target   string
}

// MockRecorder records gateway events
type MockRecorder struct {
	mu       sync.RWMutex
	headers  int
	frames   int
	links    []LinkChange
	queries  []string
	timeouts []string
	routes   []dstar.RouteStatus
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (m *MockRecorder) HeaderReceived(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers++
}

func (m *MockRecorder) FrameReceived(string, bool, uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

func (m *MockRecorder) LinkStateChanged(repeater string, status dstar.LinkStatus, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, LinkChange{Repeater: repeater, Status: status, Target: target})
}

func (m *MockRecorder) DirectoryQuery(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, kind)
}

func (m *MockRecorder) DirectoryTimeout(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts = append(m.timeouts, kind)
}

func (m *MockRecorder) RouteSelected(_ string, route dstar.RouteStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
}

// LinkChanges returns every link state change in order
func (m *MockRecorder) LinkChanges() []LinkChange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LinkChange(nil), m.links...)
}

// Timeouts returns the kinds of lookups that timed out
func (m *MockRecorder) Timeouts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.timeouts...)
}

// Queries returns the kinds of lookups that were made
func (m *MockRecorder) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

// HeaderCount returns how many RF headers were seen
func (m *MockRecorder) HeaderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headers
}

// FrameCount returns how many RF frames were seen
func (m *MockRecorder) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}
