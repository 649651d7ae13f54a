package dstar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallsignBuilders(t *testing.T) {
	assert.Equal(t, "GB7XX  B", RepeaterCallsign("GB7XX", "B"))
	assert.Equal(t, "GB7XX  G", GatewayCallsign("GB7XX"))
	assert.Equal(t, "M0ABC   ", PadCallsign("M0ABC"))
	assert.Equal(t, "ABCDEFGH", PadCallsign("ABCDEFGHIJ"))
	assert.Equal(t, "CA  ", PadShort("CA"))
	assert.Equal(t, "XRF001 ", BaseCallsign("XRF001 A"))
	assert.Equal(t, byte('A'), ModuleLetter("XRF001 A"))
	assert.Equal(t, byte(' '), ModuleLetter(""))
}

func TestCallsignPredicates(t *testing.T) {
	tests := []struct {
		cs        string
		reflector bool
		cq        bool
		blank     bool
	}{
		{"REF030 B", true, false, false},
		{"XRF001 A", true, false, false},
		{"DCS002 C", true, false, false},
		{"GB7XX  B", false, false, false},
		{"CQCQCQ  ", false, true, false},
		{BlankCallsign, false, false, true},
		{"", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.cs, func(t *testing.T) {
			assert.Equal(t, tt.reflector, IsReflector(tt.cs))
			assert.Equal(t, tt.cq, IsCQ(tt.cs))
			assert.Equal(t, tt.blank, IsBlank(tt.cs))
		})
	}
}

func TestSameBase(t *testing.T) {
	assert.True(t, SameBase("XRF001 A", "XRF001 C"))
	assert.False(t, SameBase("XRF001 A", "XRF002 A"))
}

func TestCommandConversions(t *testing.T) {
	assert.Equal(t, "XRF001 A", ReflectorFromCommand("XRF001AL"))
	assert.Equal(t, "REF030 B", ReflectorFromCommand("REF030BL"))
	assert.Equal(t, "GB7XX  B", RepeaterFromRoute("/GB7XX B"))
	assert.Equal(t, "123456 7", RepeaterFromRoute("/1234567"))
}

func TestLinkStatusHelpers(t *testing.T) {
	for _, p := range []Protocol{ProtocolDExtra, ProtocolDPlus, ProtocolDCS, ProtocolLoopback, ProtocolCCS} {
		linking := LinkingStatus(p)
		linked := LinkedStatus(p)
		assert.True(t, linking.IsLinking(), p.String())
		assert.True(t, linked.IsLinked(), p.String())
		assert.Equal(t, p, linking.Protocol())
		assert.Equal(t, p, linked.Protocol())
	}
	assert.True(t, LinkedCCS.IsCCS())
	assert.False(t, LinkedCCS.IsReflector())
	assert.True(t, LinkingLoopback.IsReflector())
	assert.False(t, LinkPendingLookup.IsReflector())
	assert.Equal(t, LinkNone, LinkingStatus(ProtocolNone))
	assert.Equal(t, "pending_lookup", LinkPendingLookup.String())
}

func TestParseReconnect(t *testing.T) {
	tests := []struct {
		in   string
		want Reconnect
		dur  time.Duration
	}{
		{"never", ReconnectNever, 0},
		{"", ReconnectNever, 0},
		{"fixed", ReconnectFixed, 0},
		{"5m", Reconnect5Mins, 5 * time.Minute},
		{"30", Reconnect30Mins, 30 * time.Minute},
		{"180mins", Reconnect180Mins, 180 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReconnect(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.dur, got.Duration())
		})
	}

	_, err := ParseReconnect("7m")
	assert.Error(t, err)
	assert.Equal(t, "60m", Reconnect60Mins.String())
}

func TestParseProtocolAndHardware(t *testing.T) {
	p, err := ParseProtocol("REF")
	require.NoError(t, err)
	assert.Equal(t, ProtocolDPlus, p)

	_, err = ParseProtocol("ysf")
	assert.Error(t, err)

	hw, err := ParseHardwareType("Icom")
	require.NoError(t, err)
	assert.Equal(t, HardwareIcom, hw)

	_, err = ParseHardwareType("mmdvm")
	assert.Error(t, err)
}

func TestFrameSilence(t *testing.T) {
	f := &Frame{}
	assert.False(t, f.IsSilence())
	f.Silence()
	assert.True(t, f.IsSilence())
}

func TestHeaderHelpers(t *testing.T) {
	h := &Header{YourCall: "XRF001AL", Flag1: BusyFlag}
	assert.True(t, h.IsBusy())

	c := h.Copy()
	c.SetCQCQCQ()
	c.SetFlags(0, 0, 0)
	c.SetRepeaters("GB7XX  G", "GB7XX  B")

	assert.Equal(t, "XRF001AL", h.YourCall)
	assert.Equal(t, CQCQCQ, c.YourCall)
	assert.False(t, c.IsBusy())
	assert.Equal(t, "GB7XX  B", c.RptCall2)
}
