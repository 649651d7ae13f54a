package testhelpers

import (
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// Callsigns used throughout the tests
const (
	TestGateway  = "GB7XX  G"
	TestRepeater = "GB7XX  B"
	TestUser     = "M0ABC   "
)

// NewHeader builds an RF header from user to your via rpt1 and rpt2
func NewHeader(id uint16, user, your, rpt1, rpt2 string) *dstar.Header {
	return &dstar.Header{
		ID:       id,
		MyCall1:  dstar.PadCallsign(user),
		MyCall2:  dstar.PadShort(""),
		YourCall: dstar.PadCallsign(your),
		RptCall1: dstar.PadCallsign(rpt1),
		RptCall2: dstar.PadCallsign(rpt2),
	}
}

// NewFrame builds a voice frame carrying a non-silent pattern
func NewFrame(id uint16, seq byte, end bool) *dstar.Frame {
	f := &dstar.Frame{ID: id, Sequence: seq, End: end}
	for i := 0; i < dstar.VoiceFrameLength; i++ {
		f.Data[i] = byte(i + 1)
	}
	return f
}
