package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/dstar-gateway/internal/testhelpers"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

func TestRegistryCapacity(t *testing.T) {
	h := testhelpers.NewHarness(t, testhelpers.WithCapacity(2))
	assert.Equal(t, 2, h.Registry.Capacity())

	h.AddRepeater(t, gateway.SessionConfig{Band: "A"})
	h.AddRepeater(t, gateway.SessionConfig{Band: "B"})

	_, err := h.Registry.Add(gateway.SessionConfig{Callsign: "GB7XX", Band: "C"})
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrRegistryFull)
	assert.Equal(t, 2, h.Registry.Len())
}

func TestRegistryDefaultCapacity(t *testing.T) {
	h := testhelpers.NewHarness(t)
	assert.Equal(t, gateway.DefaultCapacity, h.Registry.Capacity())
	assert.Zero(t, h.Registry.Len())
	assert.Nil(t, h.Registry.At(0))
	assert.Nil(t, h.Registry.At(-1))
}

func TestRegistryLookups(t *testing.T) {
	h := testhelpers.NewHarness(t)
	a := h.AddRepeater(t, gateway.SessionConfig{Band: "A", Address: "127.0.0.1", Port: 20010})
	b := h.AddRepeater(t, gateway.SessionConfig{Band: "B", Address: "127.0.0.1", Port: 20011})
	dd := h.AddRepeater(t, gateway.SessionConfig{Band: "AD", Address: "127.0.0.1", Port: 20012})

	assert.Equal(t, 0, a.Index())
	assert.Equal(t, 1, b.Index())
	assert.Equal(t, dstar.ModeDD, dd.Mode())
	assert.Equal(t, "GB7XX  A", dd.RepeaterCallsign())

	assert.Same(t, b, h.Registry.FindByRFSource("127.0.0.1", 20011))
	assert.Nil(t, h.Registry.FindByRFSource("127.0.0.1", 20099))

	assert.Same(t, a, h.Registry.FindByCallsign("GB7XX  A", dstar.ModeDV))
	assert.Same(t, dd, h.Registry.FindByCallsign("GB7XX  A", dstar.ModeDD))
	assert.Nil(t, h.Registry.FindByCallsign("GB7XX  C", dstar.ModeDV))

	assert.Same(t, a, h.Registry.FindAnyInMode(dstar.ModeDV))
	assert.Same(t, dd, h.Registry.FindAnyInMode(dstar.ModeDD))

	assert.Equal(t, []string{"GB7XX  A", "GB7XX  B"}, h.Registry.List(dstar.ModeDV))

	hdr := testhelpers.NewHeader(5, testhelpers.TestUser, "CQCQCQ", "GB7XX  B", testhelpers.TestGateway)
	hdr.Address = "127.0.0.1"
	assert.Same(t, b, h.Registry.FindByHeader(hdr))
}

func TestRegistryFindByFrameID(t *testing.T) {
	h := testhelpers.NewHarness(t)
	a := h.AddRepeater(t, gateway.SessionConfig{Band: "A"})
	b := h.AddRepeater(t, gateway.SessionConfig{Band: "B"})

	a.ProcessHeader(testhelpers.NewHeader(100, testhelpers.TestUser, "CQCQCQ", "GB7XX  A", testhelpers.TestGateway))
	b.ProcessBusyHeader(testhelpers.NewHeader(200, testhelpers.TestUser, "CQCQCQ", "GB7XX  B", testhelpers.TestGateway))

	assert.Same(t, a, h.Registry.FindByFrameID(100, false))
	assert.Nil(t, h.Registry.FindByFrameID(100, true))
	assert.Same(t, b, h.Registry.FindByFrameID(200, true))
	assert.Nil(t, h.Registry.FindByFrameID(200, false))
}

func TestRegistrySnapshots(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	s := h.AddRepeater(t, gateway.SessionConfig{Hardware: dstar.HardwareIcom})
	s.Link(dstar.Reconnect15Mins, "XRF001 A")

	snaps := h.Registry.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, testhelpers.TestRepeater, snaps[0].Callsign)
	assert.Equal(t, dstar.HardwareIcom, snaps[0].Hardware)
	assert.Equal(t, dstar.LinkingDExtra, snaps[0].LinkStatus)
	assert.Equal(t, "XRF001 A", snaps[0].LinkTarget)
	assert.Equal(t, "XRF001 A", snaps[0].Startup)
	assert.Equal(t, dstar.Reconnect15Mins, snaps[0].Reconnect)
	assert.False(t, snaps[0].Active)
}

func TestRegistryStartup(t *testing.T) {
	h := testhelpers.NewHarness(t)
	addReflector(h, "XRF001 A", dstar.ProtocolDExtra)
	auto := h.AddRepeater(t, gateway.SessionConfig{
		Band:      "A",
		Reflector: "XRF001 A",
		AtStartup: true,
		Frequency: 439.4,
		Latitude:  51.5,
		Longitude: -0.12,
	})
	idle := h.AddRepeater(t, gateway.SessionConfig{Band: "B", Reflector: "XRF001 A"})

	h.Registry.Startup()

	assert.Equal(t, dstar.LinkingDExtra, auto.LinkStatus())
	assert.Equal(t, dstar.LinkNone, idle.LinkStatus())
	assert.Equal(t, gateway.StatusNotLinked, lastText(t, h, idle).Kind)

	assert.Equal(t, []string{"GB7XX  A"}, h.Directory.QRGReports())
	assert.Equal(t, []string{"GB7XX  A"}, h.Directory.QTHReports())
	assert.Equal(t, 1, h.Call(auto).Connects())
	assert.Equal(t, 1, h.Call(idle).Connects())
}

func TestRegistryPollAll(t *testing.T) {
	h := testhelpers.NewHarness(t)
	icom := h.AddRepeater(t, gateway.SessionConfig{Band: "A", Hardware: dstar.HardwareIcom})
	h.AddRepeater(t, gateway.SessionConfig{Band: "B"})

	h.Registry.PollAll("ICOM")
	assert.Empty(t, h.Directory.Kicks())

	h.Registry.Clock(gateway.PollInterval)
	h.Registry.PollAll("ICOM")
	h.Registry.PollAll("ICOM")

	kicks := h.Directory.Kicks()
	require.Len(t, kicks, 1)
	assert.Equal(t, icom.RepeaterCallsign(), kicks[0].Callsign)
	assert.Equal(t, "ICOM", kicks[0].Text)
}

func TestRegistryHeardDebounce(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{Hardware: dstar.HardwareIcom})

	s.ProcessHeard("M0ABC   ", testhelpers.TestRepeater)
	assert.Empty(t, h.Directory.Heard())

	// A second report flushes the first
	s.ProcessHeard("G4XYZ   ", testhelpers.TestRepeater)
	heard := h.Directory.Heard()
	require.Len(t, heard, 1)
	assert.Equal(t, "M0ABC   ", heard[0].User)

	h.Registry.Clock(gateway.HeardDebounce)
	heard = h.Directory.Heard()
	require.Len(t, heard, 2)
	assert.Equal(t, "G4XYZ   ", heard[1].User)

	h.Registry.Clock(gateway.HeardDebounce)
	assert.Len(t, h.Directory.Heard(), 2)
}

func TestRegistryWriteStatus(t *testing.T) {
	h := testhelpers.NewHarness(t)
	a := h.AddRepeater(t, gateway.SessionConfig{Band: "A"})
	b := h.AddRepeater(t, gateway.SessionConfig{Band: "B"})

	h.Registry.WriteStatus("Gateway restarting")

	assert.Equal(t, []string{"Gateway restarting"}, h.Transport(a).Statuses())
	assert.Equal(t, []string{"Gateway restarting"}, h.Transport(b).Statuses())
}

func TestRegistryClose(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.AddRepeater(t, gateway.SessionConfig{Band: "A"})
	h.AddRepeater(t, gateway.SessionConfig{Band: "B"})

	h.Registry.Close()

	assert.Zero(t, h.Registry.Len())
	assert.Equal(t, 2, h.DExtra.UnlinkCount())
	assert.Equal(t, 2, h.DPlus.UnlinkCount())
	assert.Equal(t, 2, h.DCS.UnlinkCount())
}
