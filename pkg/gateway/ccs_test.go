package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/dstar-gateway/internal/testhelpers"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

func TestCCSCallSuspendsAndRestoresLinks(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF002 A", dstar.ProtocolDExtra)
	s := linked(t, h, dstar.ProtocolDExtra, "XRF001 A", dstar.Reconnect5Mins)
	call := h.Call(s)
	call.SetStatus(gateway.CallConnected)

	s.ProcessHeader(rfHeader(1, "C1234"))
	transmit(s, 1, 1)

	assert.Equal(t, dstar.LinkingCCS, s.LinkStatus())
	starts := call.Starts()
	require.Len(t, starts, 1)
	assert.Equal(t, "1234   ", starts[0].Target)
	assert.Equal(t, testhelpers.TestUser, starts[0].User)
	assert.Equal(t, "UR Call", starts[0].Via)

	s.CallLinkMade("", dstar.DirectionOutgoing)

	assert.Equal(t, dstar.LinkedCCS, s.LinkStatus())
	assert.Equal(t, "1234   ", s.LinkTarget())
	assert.Equal(t, gateway.StatusCallLinked, lastText(t, h, s).Kind)

	// Reflector commands wait for the call to end
	s.ProcessHeader(rfHeader(2, "XRF002AL"))
	transmit(s, 2, 1)
	assert.Equal(t, dstar.LinkedCCS, s.LinkStatus())

	s.CallLinkEnded("", dstar.DirectionOutgoing)

	assert.Equal(t, dstar.LinkingDExtra, s.LinkStatus())
	assert.Equal(t, "XRF001 A", s.LinkTarget())
}

func TestCCSCallRequiresConnection(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "C1234"))

	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
	assert.Empty(t, h.Call(s).Starts())
}

func TestCCSCancel(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "CA"))

	stops := h.Call(s).Stops()
	require.Len(t, stops, 1)
	assert.Equal(t, testhelpers.TestUser, stops[0].User)
	assert.Equal(t, "UR Call", stops[0].Via)
}

func TestCCSTimeout(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})
	h.Call(s).SetStatus(gateway.CallConnected)

	s.ProcessHeader(rfHeader(1, "C1234"))
	transmit(s, 1, 1)
	require.Equal(t, dstar.LinkingCCS, s.LinkStatus())

	h.Registry.Clock(gateway.QueryTimeout)

	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
	assert.Empty(t, s.LinkTarget())
	stops := h.Call(s).Stops()
	require.Len(t, stops, 1)
	assert.Equal(t, "timeout", stops[0].Via)
	assert.Equal(t, gateway.StatusNotLinked, lastText(t, h, s).Kind)
}

func TestCCSFailure(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})
	h.Call(s).SetStatus(gateway.CallConnected)

	s.ProcessHeader(rfHeader(1, "C1234"))
	transmit(s, 1, 1)

	s.CallLinkFailed("1234", dstar.DirectionOutgoing)

	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
	texts := h.Transport(s).Texts()
	require.GreaterOrEqual(t, len(texts), 2)
	failed := texts[len(texts)-2]
	assert.Equal(t, gateway.StatusCallFailed, failed.Kind)
	assert.Equal(t, "1234", failed.Target)
	assert.True(t, failed.Temporary)
	assert.Equal(t, gateway.StatusNotLinked, texts[len(texts)-1].Kind)
}

func TestCCSIncomingCallOnlyAnnounces(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := linked(t, h, dstar.ProtocolDExtra, "XRF001 A", dstar.ReconnectNever)

	s.CallLinkMade("GB7YY", dstar.DirectionIncoming)

	assert.Equal(t, dstar.LinkedDExtra, s.LinkStatus())
	st := lastText(t, h, s)
	assert.Equal(t, gateway.StatusCallLinked, st.Kind)
	assert.True(t, st.Temporary)
	assert.Len(t, h.Units(s).Info.TempStatuses(), 1)

	s.CallLinkEnded("GB7YY", dstar.DirectionIncoming)
	assert.Equal(t, dstar.LinkedDExtra, s.LinkStatus())
	assert.Equal(t, gateway.StatusCallEnded, lastText(t, h, s).Kind)
}

func TestCCSStaleCallbacksIgnored(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := linked(t, h, dstar.ProtocolDExtra, "XRF001 A", dstar.ReconnectNever)

	s.CallLinkMade("1234", dstar.DirectionOutgoing)
	s.CallLinkEnded("1234", dstar.DirectionOutgoing)
	s.CallLinkFailed("1234", dstar.DirectionOutgoing)

	assert.Equal(t, dstar.LinkedDExtra, s.LinkStatus())
	assert.Equal(t, "XRF001 A", s.LinkTarget())
}

func TestAdminLinkDropsCCS(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})
	h.Call(s).SetStatus(gateway.CallConnected)

	s.ProcessHeader(rfHeader(1, "C1234"))
	transmit(s, 1, 1)

	s.Link(dstar.ReconnectNever, "XRF001 A")

	assert.Equal(t, dstar.LinkingDExtra, s.LinkStatus())
	stops := h.Call(s).Stops()
	require.Len(t, stops, 1)
	assert.Equal(t, "remote", stops[0].Via)
}

func TestDTMFCCSCall(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})
	h.Call(s).SetStatus(gateway.CallConnected)
	h.DTMF(0).Queue("C1234")

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))

	assert.Equal(t, dstar.LinkingCCS, s.LinkStatus())
	starts := h.Call(s).Starts()
	require.Len(t, starts, 1)
	assert.Equal(t, "1234", starts[0].Target)
	assert.Equal(t, "DTMF", starts[0].Via)
}
