package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/dstar-gateway/internal/testhelpers"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

const (
	remoteUser     = "M1XYZ   "
	remoteRepeater = "GB7YY  C"
	remoteGateway  = "GB7YY  G"
	remoteAddress  = "198.51.100.7"
)

func TestUserRouteCacheHit(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.Cache.AddUser(gateway.UserEntry{User: remoteUser, Repeater: remoteRepeater, Gateway: remoteGateway, Address: remoteAddress})
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))

	assert.Equal(t, dstar.RouteOK, s.Route())
	assert.Empty(t, h.Directory.UserLookups())

	headers := h.G2.Headers()
	require.Len(t, headers, 1)
	assert.Equal(t, remoteAddress, headers[0].Address)
	assert.Equal(t, dstar.G2Port, headers[0].Port)
	assert.Equal(t, remoteGateway, headers[0].RptCall1)
	assert.Equal(t, remoteRepeater, headers[0].RptCall2)

	transmit(s, 1, 2)

	frames := h.G2.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, remoteAddress, frames[1].Address)
	assert.Empty(t, h.DExtra.Frames(dstar.DirectionOutgoing))

	var destinations []string
	for _, r := range h.Directory.Heard() {
		if !r.Stats {
			destinations = append(destinations, r.Destination)
		}
	}
	assert.Equal(t, []string{remoteRepeater}, destinations)
}

func TestUserOnThisRepeaterIsLocal(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.Cache.AddUser(gateway.UserEntry{User: remoteUser, Repeater: testhelpers.TestRepeater, Gateway: testhelpers.TestGateway, Address: "127.0.0.1"})
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Empty(t, h.G2.Headers())
}

func TestUserRouteResolved(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))

	assert.Equal(t, dstar.RouteUser, s.Route())
	assert.Equal(t, []string{remoteUser}, h.Directory.UserLookups())
	assert.Equal(t, []string{"user"}, h.Recorder.Queries())

	// Held until the directory replies
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))
	assert.Empty(t, h.G2.Frames())

	h.Registry.ResolveUser(remoteUser, remoteRepeater, remoteGateway, remoteAddress)

	assert.Equal(t, dstar.RouteOK, s.Route())
	headers := h.G2.Headers()
	require.Len(t, headers, 1)
	assert.Equal(t, remoteUser, headers[0].YourCall)
	assert.Equal(t, remoteAddress, headers[0].Address)

	s.ProcessFrame(testhelpers.NewFrame(1, 1, true))
	assert.Len(t, h.G2.Frames(), 1)
}

func TestUserRouteNotFound(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))
	h.Registry.ResolveUser(remoteUser, "", "", "")

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Empty(t, h.G2.Headers())
}

func TestStaleUserReplyIgnored(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))
	h.Registry.ResolveUser("M9ZZZ   ", remoteRepeater, remoteGateway, remoteAddress)

	assert.Equal(t, dstar.RouteUser, s.Route())
	assert.Empty(t, h.G2.Headers())
}

func TestUserRouteTimeoutThenLateReply(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))

	// Keep the transmission alive past the lookup timeout
	steps := int(gateway.QueryTimeout / gateway.VoiceFrameSpacing)
	for i := 0; i < steps; i++ {
		s.ProcessFrame(testhelpers.NewFrame(1, byte(i%21), false))
		h.Registry.Clock(gateway.VoiceFrameSpacing)
	}

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Equal(t, []string{"user"}, h.Recorder.Timeouts())
	assert.NotZero(t, s.ActiveID())

	h.Registry.ResolveUser(remoteUser, remoteRepeater, remoteGateway, remoteAddress)

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Empty(t, h.G2.Headers())

	s.ProcessFrame(testhelpers.NewFrame(1, 0, true))
	records := h.Journal.Records()
	require.Len(t, records, 1)
	assert.Equal(t, gateway.QueryTimeout, records[0].Duration)
}

func TestReplyAfterTransmissionEndedIgnored(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))
	transmit(s, 1, 2)
	h.Registry.ResolveUser(remoteUser, remoteRepeater, remoteGateway, remoteAddress)

	assert.Equal(t, dstar.RouteNone, s.Route())
	assert.Empty(t, h.G2.Headers())
}

func TestRepeaterRouteResolved(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "/GB7YY C"))

	assert.Equal(t, dstar.RouteRepeater, s.Route())
	assert.Equal(t, []string{remoteRepeater}, h.Directory.RepeaterLookups())

	h.Registry.ResolveRepeater(remoteRepeater, remoteGateway, remoteAddress, dstar.ProtocolDExtra)

	assert.Equal(t, dstar.RouteOK, s.Route())
	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
	headers := h.G2.Headers()
	require.Len(t, headers, 1)
	assert.Equal(t, remoteRepeater, headers[0].RptCall2)
	assert.Equal(t, remoteGateway, headers[0].RptCall1)
}

func TestRepeaterRouteCacheHit(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.Cache.AddRepeater(gateway.RepeaterEntry{Repeater: remoteRepeater, Gateway: remoteGateway, Address: remoteAddress})
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "/GB7YY C"))

	assert.Equal(t, dstar.RouteOK, s.Route())
	assert.Empty(t, h.Directory.RepeaterLookups())
	assert.Len(t, h.G2.Headers(), 1)
}

func TestRepeaterRouteNotFound(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "/GB7YY C"))
	h.Registry.ResolveRepeater(remoteRepeater, "", "", dstar.ProtocolNone)

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Empty(t, h.G2.Headers())
}

func TestRouteRefusedTargets(t *testing.T) {
	tests := []struct {
		name string
		your string
	}{
		{"self", "/GB7XX B"},
		{"reflector route", "/XRF001A"},
		{"reflector user", "XRF001 A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testhelpers.NewHarness(t)
			s := h.AddRepeater(t, gateway.SessionConfig{})

			s.ProcessHeader(rfHeader(1, tt.your))

			assert.Equal(t, dstar.RouteLocal, s.Route())
			assert.Empty(t, h.Directory.UserLookups())
			assert.Empty(t, h.Directory.RepeaterLookups())
		})
	}
}

func TestRoutingWithoutDirectory(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithoutDirectory())
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, remoteUser))
	assert.Equal(t, dstar.RouteLocal, s.Route())

	s.ProcessHeader(rfHeader(2, "/GB7YY C"))
	assert.Equal(t, dstar.RouteLocal, s.Route())
}
