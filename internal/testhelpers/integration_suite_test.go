//go:build integration
// +build integration

package testhelpers

import (
	"testing"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// TestIntegrationSuite_Basic tests basic integration suite functionality
func TestIntegrationSuite_Basic(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	if suite.Logger == nil {
		t.Error("Expected logger to be initialized")
	}

	if suite.Ctx == nil {
		t.Error("Expected context to be initialized")
	}

	if suite.Harness.Registry == nil {
		t.Error("Expected registry to be initialized")
	}
}

// TestIntegrationSuite_Repeater tests adding a repeater and running the engine
func TestIntegrationSuite_Repeater(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	s := suite.Harness.AddRepeater(t, gateway.SessionConfig{})
	if s.RepeaterCallsign() != TestRepeater {
		t.Errorf("Expected repeater %q, got %q", TestRepeater, s.RepeaterCallsign())
	}

	suite.Start()

	var status dstar.LinkStatus
	suite.Do(func(r *gateway.Registry) {
		status = r.At(0).LinkStatus()
	})
	if status != dstar.LinkNone {
		t.Errorf("Expected unlinked, got %s", status)
	}

	tr := suite.Harness.Transport(s)
	suite.AssertEventually(func() bool {
		return len(tr.Texts()) > 0
	}, time.Second, "startup status written")
}

// TestIntegrationSuite_WaitFor tests the WaitFor helper
func TestIntegrationSuite_WaitFor(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	counter := 0
	condition := func() bool {
		counter++
		return counter >= 5
	}

	result := suite.WaitFor(condition, 1*time.Second, "counter >= 5")
	if !result {
		t.Error("Expected WaitFor to succeed")
	}

	if counter < 5 {
		t.Errorf("Expected counter >= 5, got %d", counter)
	}
}

// TestIntegrationSuite_WaitForTimeout tests WaitFor timeout
func TestIntegrationSuite_WaitForTimeout(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	condition := func() bool {
		return false
	}

	result := suite.WaitFor(condition, 100*time.Millisecond, "always false")
	if result {
		t.Error("Expected WaitFor to timeout")
	}
}

// TestIntegrationSuite_GetFreePort tests getting a free port
func TestIntegrationSuite_GetFreePort(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	port := suite.GetFreePort()
	if port <= 0 || port > 65535 {
		t.Errorf("Invalid port number: %d", port)
	}
}
