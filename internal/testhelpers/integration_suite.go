package testhelpers

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// IntegrationSuite runs a gateway engine over recording collaborators
type IntegrationSuite struct {
	T       *testing.T
	Harness *Harness
	Engine  *gateway.Engine
	Logger  *logger.Logger
	Ctx     context.Context
	Cancel  context.CancelFunc

	done chan error
}

// NewIntegrationSuite creates a new integration test suite. The engine is
// not started until Start is called, so repeaters can be added first.
func NewIntegrationSuite(t *testing.T, opts ...HarnessOption) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	h := NewHarness(t, opts...)

	return &IntegrationSuite{
		T:       t,
		Harness: h,
		Engine:  gateway.NewEngine(h.Registry, time.Millisecond),
		Logger:  log,
		Ctx:     ctx,
		Cancel:  cancel,
	}
}

// Start runs the engine in the background
func (s *IntegrationSuite) Start() {
	s.done = make(chan error, 1)
	go func() {
		s.done <- s.Engine.Run(s.Ctx)
	}()
}

// Do runs fn on the engine goroutine and fails the test on error
func (s *IntegrationSuite) Do(fn func(r *gateway.Registry)) {
	s.T.Helper()
	if err := s.Engine.Do(s.Ctx, fn); err != nil {
		s.T.Fatalf("engine: %v", err)
	}
}

// GetFreePort gets a free port for testing
func (s *IntegrationSuite) GetFreePort() int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		s.T.Fatal(err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.T.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// Cleanup stops the engine and waits for it to exit
func (s *IntegrationSuite) Cleanup() {
	s.Cancel()
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
			s.T.Errorf("engine did not stop")
		}
	}
}

// WaitFor waits for a condition to be true
func (s *IntegrationSuite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually asserts that a condition becomes true within timeout
func (s *IntegrationSuite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}
