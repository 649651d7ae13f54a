package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/dstar-gateway/internal/testhelpers"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

func rfHeader(id uint16, your string) *dstar.Header {
	return testhelpers.NewHeader(id, testhelpers.TestUser, your, testhelpers.TestRepeater, testhelpers.TestGateway)
}

// transmit sends n frames of transmission id, the last one marked as the end
func transmit(s *gateway.Session, id uint16, n int) {
	for i := 0; i < n; i++ {
		s.ProcessFrame(testhelpers.NewFrame(id, byte(i), i == n-1))
	}
}

func TestDuplicateHeaderIsNoop(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(7, "CQCQCQ"))
	s.ProcessFrame(testhelpers.NewFrame(7, 0, false))
	s.ProcessHeader(rfHeader(7, "CQCQCQ"))

	assert.Equal(t, 1, h.Recorder.HeaderCount())
	assert.Equal(t, 1, h.Journal.HeaderCount())
	assert.Len(t, h.DExtra.Headers(dstar.DirectionOutgoing), 1)
	assert.Len(t, h.DExtra.Headers(dstar.DirectionIncoming), 1)
	assert.Equal(t, uint16(7), s.ActiveID())

	transmit(s, 7, 2)
	stats := h.Directory.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint(3), stats[0].Frames)
}

func TestCQFansOutEvenWhenRestricted(t *testing.T) {
	for _, restricted := range []bool{false, true} {
		name := "open"
		var opts []testhelpers.HarnessOption
		if restricted {
			name = "restricted"
			opts = append(opts, testhelpers.WithRestricted(testhelpers.TestUser))
		}

		t.Run(name, func(t *testing.T) {
			h := testhelpers.NewHarness(t, opts...)
			s := h.AddRepeater(t, gateway.SessionConfig{})

			s.ProcessHeader(rfHeader(1, "CQCQCQ"))

			assert.Equal(t, dstar.RouteNone, s.Route())
			for _, ref := range []*testhelpers.MockReflector{h.DExtra, h.DPlus, h.DCS} {
				out := ref.Headers(dstar.DirectionOutgoing)
				require.Len(t, out, 1, ref.Protocol.String())
				assert.Equal(t, dstar.CQCQCQ, out[0].Header.YourCall)
			}

			dcs := h.DCS.Headers(dstar.DirectionOutgoing)[0].Header
			assert.Equal(t, testhelpers.TestRepeater, dcs.RptCall1)
		})
	}
}

func TestOutgoingHeaderRewrite(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := linked(t, h, dstar.ProtocolDExtra, "XRF001 A", dstar.ReconnectNever)

	in := rfHeader(1, "CQCQCQ")
	in.SetFlags(0x40, 0x01, 0x02)
	s.ProcessHeader(in)

	out := h.DExtra.Headers(dstar.DirectionOutgoing)
	require.Len(t, out, 1)
	assert.Equal(t, "XRF001 G", out[0].Header.RptCall1)
	assert.Equal(t, "XRF001 A", out[0].Header.RptCall2)
	assert.Equal(t, byte(0), out[0].Header.Flag1)

	// The caller's header is untouched
	assert.Equal(t, byte(0x40), in.Flag1)
	assert.Equal(t, testhelpers.TestGateway, in.RptCall2)
}

func TestHeaderMirroredToIncoming(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "       E"))

	assert.Equal(t, dstar.RouteEcho, s.Route())
	assert.Empty(t, h.DExtra.Headers(dstar.DirectionOutgoing))

	dplus := h.DPlus.Headers(dstar.DirectionIncoming)
	require.Len(t, dplus, 1)
	assert.Equal(t, testhelpers.TestRepeater, dplus[0].Header.RptCall1)
	assert.Equal(t, testhelpers.TestGateway, dplus[0].Header.RptCall2)

	dextra := h.DExtra.Headers(dstar.DirectionIncoming)
	require.Len(t, dextra, 1)
	assert.Equal(t, s.GatewayCallsign(), dextra[0].Header.RptCall1)
	assert.Equal(t, testhelpers.TestRepeater, dextra[0].Header.RptCall2)
	assert.Len(t, h.DCS.Headers(dstar.DirectionIncoming), 1)

	transmit(s, 1, 3)
	assert.Len(t, h.DCS.Frames(dstar.DirectionIncoming), 3)
}

func TestHeaderToOwnRepeaterIsNotRouted(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(testhelpers.NewHeader(1, testhelpers.TestUser, "CQCQCQ", testhelpers.TestRepeater, testhelpers.TestRepeater))
	s.ProcessHeader(testhelpers.NewHeader(2, testhelpers.TestUser, "CQCQCQ", testhelpers.TestRepeater, ""))

	assert.Equal(t, dstar.RouteNone, s.Route())
	assert.Empty(t, h.DExtra.Headers(dstar.DirectionOutgoing))
}

func TestBusyNotificationIgnored(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	hdr := rfHeader(1, "CQCQCQ")
	hdr.Flag1 = dstar.BusyFlag
	s.ProcessHeader(hdr)

	assert.Zero(t, s.ActiveID())
	assert.Zero(t, h.Recorder.HeaderCount())
}

func TestCrossBandRouting(t *testing.T) {
	h := testhelpers.NewHarness(t)
	b := h.AddRepeater(t, gateway.SessionConfig{Band: "B"})
	c := h.AddRepeater(t, gateway.SessionConfig{Band: "C", Address: "127.0.0.1", Port: 20011})

	b.ProcessHeader(testhelpers.NewHeader(1, testhelpers.TestUser, "CQCQCQ", testhelpers.TestRepeater, "GB7XX  C"))

	assert.Equal(t, dstar.RouteXBand, b.Route())
	assert.Empty(t, h.DExtra.Headers(dstar.DirectionOutgoing))

	headers := h.Transport(c).Headers()
	require.Len(t, headers, 1)
	assert.Equal(t, c.GatewayCallsign(), headers[0].RptCall1)
	assert.Equal(t, "GB7XX  C", headers[0].RptCall2)
	assert.Equal(t, "127.0.0.1", headers[0].Address)
	assert.Equal(t, 20011, headers[0].Port)

	transmit(b, 1, 3)

	assert.Len(t, h.Transport(c).Frames(), 3)
	assert.Zero(t, h.DTMF(0).Decoded())
	assert.Zero(t, b.ActiveID())
	assert.Equal(t, dstar.RouteNone, b.Route())
}

func TestCrossBandToUnknownRepeater(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(testhelpers.NewHeader(1, testhelpers.TestUser, "CQCQCQ", testhelpers.TestRepeater, "GB7YY  C"))

	assert.Equal(t, dstar.RouteLocal, s.Route())
	assert.Empty(t, h.DExtra.Headers(dstar.DirectionOutgoing))

	transmit(s, 1, 2)
	assert.Empty(t, h.DExtra.Frames(dstar.DirectionOutgoing))
}

func TestStarNetRouting(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithGroups("STN001  "))
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "STN001"))

	assert.Equal(t, dstar.RouteStarNet, s.Route())
	assert.Equal(t, 1, h.Groups.HeaderCount("STN001  "))
	assert.Empty(t, h.DExtra.Headers(dstar.DirectionOutgoing))

	transmit(s, 1, 4)
	assert.Equal(t, 4, h.Groups.FrameCount("STN001  "))
}

func TestStarNetGroupRemovedMidTransmission(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithGroups("STN001  "))
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "STN001"))
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))
	h.Groups.Remove("STN001  ")
	s.ProcessFrame(testhelpers.NewFrame(1, 1, true))

	assert.Equal(t, 1, h.Groups.FrameCount("STN001  "))
	assert.Zero(t, s.ActiveID())
}

func TestStarNetRefusedForRestrictedUser(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithGroups("STN001  "), testhelpers.WithRestricted(testhelpers.TestUser))
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "STN001"))

	assert.Equal(t, dstar.RouteNone, s.Route())
	assert.Zero(t, h.Groups.HeaderCount("STN001  "))
	assert.Len(t, h.DExtra.Headers(dstar.DirectionOutgoing), 1)
}

func TestEchoRoute(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "       E"))
	transmit(s, 1, 3)

	units := h.Units(s)
	assert.Equal(t, 1, units.Echo.HeaderCount())
	assert.Equal(t, 3, units.Echo.FrameCount())
	assert.Empty(t, h.DExtra.Frames(dstar.DirectionOutgoing))
}

func TestDeferredAnnouncements(t *testing.T) {
	tests := []struct {
		your string
		unit func(*testhelpers.MockUnits) *testhelpers.MockUnit
	}{
		{"       I", func(u *testhelpers.MockUnits) *testhelpers.MockUnit { return u.Info }},
		{"       M", func(u *testhelpers.MockUnits) *testhelpers.MockUnit { return u.Message }},
		{"       W", func(u *testhelpers.MockUnits) *testhelpers.MockUnit { return u.Weather }},
	}
	for _, tt := range tests {
		t.Run(tt.your, func(t *testing.T) {
			h := testhelpers.NewHarness(t)
			s := h.AddRepeater(t, gateway.SessionConfig{})
			unit := tt.unit(h.Units(s))

			s.ProcessHeader(rfHeader(1, tt.your))
			assert.Equal(t, dstar.RouteLocal, s.Route())

			transmit(s, 1, 2)
			assert.Equal(t, 1, unit.Sends())

			s.ProcessHeader(rfHeader(2, "CQCQCQ"))
			transmit(s, 2, 2)
			assert.Equal(t, 1, unit.Sends())
		})
	}
}

func TestVersionRoute(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "       V"))
	assert.Equal(t, dstar.RouteVersion, s.Route())
	assert.Len(t, h.DExtra.Headers(dstar.DirectionOutgoing), 1)

	transmit(s, 1, 2)
	assert.Equal(t, 1, h.Units(s).Version.Sends())
	assert.Len(t, h.DExtra.Frames(dstar.DirectionOutgoing), 2)
}

func TestNewHeaderCancelsAnnouncements(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))

	units := h.Units(s)
	for _, u := range []*testhelpers.MockUnit{units.Echo, units.Info, units.Message, units.Weather, units.Version} {
		assert.Equal(t, 1, u.Cancels())
	}
}

func TestRestrictedUserCannotIssueCommands(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithRestricted(testhelpers.TestUser))
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "XRF001AL"))

	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
	assert.Empty(t, h.DExtra.Links())
	assert.Len(t, h.DExtra.Headers(dstar.DirectionOutgoing), 1)
	assert.True(t, s.Snapshot().Restricted)
}

func TestFrameCountersAndStats(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))

	f := testhelpers.NewFrame(1, 0, false)
	f.Errors = 3
	s.ProcessFrame(f)

	silent := testhelpers.NewFrame(1, 1, false)
	silent.Silence()
	silent.Errors = 1
	s.ProcessFrame(silent)

	s.ProcessFrame(testhelpers.NewFrame(1, 2, true))

	stats := h.Directory.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint(3), stats[0].Frames)
	assert.Equal(t, uint(1), stats[0].Silence)
	assert.Equal(t, uint(2), stats[0].Errors)
	assert.Equal(t, testhelpers.TestUser, stats[0].User)

	records := h.Journal.Records()
	require.Len(t, records, 1)
	assert.Equal(t, testhelpers.TestRepeater, records[0].Repeater)
	assert.Equal(t, uint(3), records[0].Frames)
	assert.Equal(t, dstar.RouteNone, records[0].Route)

	assert.Zero(t, s.ActiveID())
	assert.Len(t, h.DCS.Frames(dstar.DirectionOutgoing), 3)
	assert.Equal(t, 3, h.Recorder.FrameCount())
}

func TestFrameWithWrongIDIgnored(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))
	assert.Zero(t, h.Recorder.FrameCount())

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))
	s.ProcessFrame(testhelpers.NewFrame(2, 0, true))

	assert.Zero(t, h.Recorder.FrameCount())
	assert.Equal(t, uint16(1), s.ActiveID())
}

func TestWatchdogEndsStalledTransmission(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	// A user route waiting on the directory
	s.ProcessHeader(rfHeader(1, "M1XYZ"))
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))
	require.Equal(t, dstar.RouteUser, s.Route())
	require.Len(t, h.Directory.UserLookups(), 1)

	h.Registry.Clock(gateway.WatchdogTimeout)

	assert.Zero(t, s.ActiveID())
	assert.Equal(t, dstar.RouteNone, s.Route())
	assert.Len(t, h.Directory.Stats(), 1)
	assert.Len(t, h.Journal.Records(), 1)

	// The lookup was cancelled with the transmission
	h.Registry.Clock(gateway.QueryTimeout)
	assert.Empty(t, h.Recorder.Timeouts())
	assert.Len(t, h.Directory.Stats(), 1)

	h.Registry.ResolveUser("M1XYZ   ", "GB7YY  C", "GB7YY  G", "198.51.100.7")
	assert.Empty(t, h.G2.Headers())
}

func TestWatchdogEndsEcho(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "       E"))
	h.Registry.Clock(gateway.WatchdogTimeout)

	assert.Equal(t, 1, h.Units(s).Echo.Ends())
	assert.Zero(t, s.ActiveID())
}

func TestDTMFLinkCommand(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	h.DTMF(0).Queue("XRF001AL")
	s.ProcessHeader(rfHeader(1, "CQCQCQ"))
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))

	assert.Equal(t, dstar.LinkingDExtra, s.LinkStatus())
	out := h.DExtra.Frames(dstar.DirectionOutgoing)
	require.Len(t, out, 1)
	assert.True(t, out[0].Frame.IsSilence())

	// The link announcement waits for the end of the transmission
	info := h.Units(s).Info
	assert.Zero(t, info.Sends())
	s.ProcessFrame(testhelpers.NewFrame(1, 1, true))
	assert.Equal(t, 1, info.Sends())
}

func TestDTMFRequiresCQ(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	h.DTMF(0).Queue("XRF001AL")
	s.ProcessHeader(rfHeader(1, "       E"))
	transmit(s, 1, 2)

	assert.Equal(t, dstar.LinkNone, s.LinkStatus())
}

func TestBusyHeaderCommand(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessBusyHeader(rfHeader(9, "XRF001AL"))

	assert.Equal(t, uint16(9), s.BusyID())
	assert.Zero(t, s.ActiveID())
	assert.Equal(t, dstar.LinkingDExtra, s.LinkStatus())

	s.ProcessBusyFrame(testhelpers.NewFrame(9, 0, false))
	assert.Equal(t, uint16(9), s.BusyID())
	s.ProcessBusyFrame(testhelpers.NewFrame(9, 1, true))
	assert.Zero(t, s.BusyID())
	assert.Equal(t, 1, h.Units(s).Info.Sends())
}

func TestBusyHeaderSkipsInfoAndEcho(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessBusyHeader(rfHeader(9, "       I"))
	s.ProcessBusyFrame(testhelpers.NewFrame(9, 0, true))

	assert.Zero(t, h.Units(s).Info.Sends())
	assert.Empty(t, h.Directory.UserLookups())
}

func TestBusyHeaderEndsStalledRF(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{})

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))
	s.ProcessFrame(testhelpers.NewFrame(1, 0, false))
	require.Equal(t, uint16(1), s.ActiveID())

	// The end marker of transmission 1 never arrives
	s.ProcessBusyHeader(rfHeader(9, "XRF001AL"))

	assert.Zero(t, s.ActiveID())
	assert.Equal(t, uint16(9), s.BusyID())
	assert.Equal(t, dstar.LinkingDExtra, s.LinkStatus())

	stats := h.Directory.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint(1), stats[0].Frames)

	// Late frames of the abandoned transmission are dropped
	s.ProcessFrame(testhelpers.NewFrame(1, 1, true))
	assert.Len(t, h.Directory.Stats(), 1)
}

func TestNetworkTrafficBlockedDuringRF(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{Address: "127.0.0.1", Port: 20011})

	net := testhelpers.NewHeader(40, "G4XYZ", "CQCQCQ", "XRF001 G", "XRF001 A")
	assert.True(t, s.ProcessNetworkHeader(net, dstar.DirectionOutgoing, dstar.SourceDExtra))
	assert.True(t, s.ProcessNetworkFrame(testhelpers.NewFrame(40, 0, true), dstar.DirectionOutgoing, dstar.SourceDExtra))

	headers := h.Transport(s).Headers()
	require.Len(t, headers, 1)
	assert.Equal(t, s.GatewayCallsign(), headers[0].RptCall1)
	assert.Equal(t, testhelpers.TestRepeater, headers[0].RptCall2)
	assert.Equal(t, "127.0.0.1", headers[0].Address)
	assert.Equal(t, "XRF001 A", net.RptCall2)

	s.ProcessHeader(rfHeader(1, "CQCQCQ"))
	assert.False(t, s.ProcessNetworkHeader(net, dstar.DirectionOutgoing, dstar.SourceDExtra))
	assert.False(t, s.ProcessNetworkFrame(testhelpers.NewFrame(40, 1, false), dstar.DirectionOutgoing, dstar.SourceDExtra))
	assert.Len(t, h.Transport(s).Headers(), 1)
	assert.Len(t, h.Transport(s).Frames(), 1)
}

func TestNetworkSourceFanOut(t *testing.T) {
	tests := []struct {
		source   dstar.AudioSource
		outgoing int
	}{
		{dstar.SourceDExtra, 1},
		{dstar.SourceStarNet, 1},
		{dstar.SourceG2, 0},
		{dstar.SourceEcho, 0},
		{dstar.SourceXBand, 0},
	}
	for _, tt := range tests {
		t.Run(tt.source.String(), func(t *testing.T) {
			h := testhelpers.NewHarness(t)
			s := h.AddRepeater(t, gateway.SessionConfig{})

			hdr := testhelpers.NewHeader(40, "G4XYZ", "CQCQCQ", "XRF001 G", "XRF001 A")
			s.ProcessNetworkHeader(hdr, dstar.DirectionOutgoing, tt.source)

			assert.Len(t, h.DCS.Headers(dstar.DirectionOutgoing), tt.outgoing)
			assert.Len(t, h.DCS.Headers(dstar.DirectionIncoming), 1)
		})
	}
}

func TestNetworkDuplicateOnlyToHomebrew(t *testing.T) {
	h := testhelpers.NewHarness(t)
	hb := h.AddRepeater(t, gateway.SessionConfig{Band: "B", Hardware: dstar.HardwareHomebrew})
	icom := h.AddRepeater(t, gateway.SessionConfig{Band: "C", Hardware: dstar.HardwareIcom})

	hdr := testhelpers.NewHeader(40, "G4XYZ", "CQCQCQ", "XRF001 G", "XRF001 A")
	assert.True(t, hb.ProcessNetworkHeader(hdr, dstar.DirectionOutgoing, dstar.SourceDup))
	assert.True(t, icom.ProcessNetworkHeader(hdr, dstar.DirectionOutgoing, dstar.SourceDup))

	assert.Len(t, h.Transport(hb).Headers(), 1)
	assert.Empty(t, h.Transport(icom).Headers())
	assert.Empty(t, h.DCS.Headers(dstar.DirectionIncoming))
}

func TestNetworkIcomFrameIDOffset(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.AddRepeater(t, gateway.SessionConfig{Band: "A"})
	icom := h.AddRepeater(t, gateway.SessionConfig{Band: "B", Hardware: dstar.HardwareIcom})

	hdr := testhelpers.NewHeader(40, "G4XYZ", "CQCQCQ", "XRF001 G", "XRF001 A")
	icom.ProcessNetworkHeader(hdr, dstar.DirectionOutgoing, dstar.SourceDExtra)
	icom.ProcessNetworkFrame(testhelpers.NewFrame(40, 0, false), dstar.DirectionOutgoing, dstar.SourceDExtra)

	require.Len(t, h.Transport(icom).Headers(), 1)
	assert.Equal(t, uint16(41), h.Transport(icom).Headers()[0].ID)
	assert.Equal(t, uint16(41), h.Transport(icom).Frames()[0].ID)
	assert.Equal(t, uint16(40), hdr.ID)
}
