package dstar

import "bytes"

// Voice frame layout
const (
	VoiceFrameLength    = 9
	SlowDataLength      = 3
	FrameLength         = VoiceFrameLength + SlowDataLength
	G2Port              = 40000
	BusyFlag       byte = 0x01
)

// NullAMBE is the voice pattern for silence
var NullAMBE = [VoiceFrameLength]byte{0x9E, 0x8D, 0x32, 0x88, 0x26, 0x1A, 0x3F, 0x61, 0xE8}

// Header is a D-STAR radio header plus routing metadata
type Header struct {
	ID uint16

	Flag1 byte
	Flag2 byte
	Flag3 byte

	MyCall1  string
	MyCall2  string
	YourCall string
	RptCall1 string
	RptCall2 string

	// Icom controller band bytes
	Band1 byte
	Band2 byte
	Band3 byte

	// Where the header is being sent
	Address string
	Port    int
}

// Copy returns a copy of the header
func (h *Header) Copy() *Header {
	c := *h
	return &c
}

// SetCQCQCQ sets the destination to the broadcast callsign
func (h *Header) SetCQCQCQ() {
	h.YourCall = CQCQCQ
}

// SetFlags replaces the three flag bytes
func (h *Header) SetFlags(f1, f2, f3 byte) {
	h.Flag1, h.Flag2, h.Flag3 = f1, f2, f3
}

// SetRepeaters sets RPT1 and RPT2
func (h *Header) SetRepeaters(rpt1, rpt2 string) {
	h.RptCall1 = rpt1
	h.RptCall2 = rpt2
}

// SetBands sets the Icom band bytes
func (h *Header) SetBands(b1, b2, b3 byte) {
	h.Band1, h.Band2, h.Band3 = b1, b2, b3
}

// SetDestination sets the network destination
func (h *Header) SetDestination(address string, port int) {
	h.Address = address
	h.Port = port
}

// IsBusy reports whether this is a repeater busy notification
func (h *Header) IsBusy() bool {
	return h.Flag1 == BusyFlag
}

// Frame is one voice frame of a transmission
type Frame struct {
	ID       uint16
	Sequence byte
	End      bool
	Errors   uint

	// Voice data followed by slow data
	Data [FrameLength]byte

	// Slow data text collected for this transmission
	Text string

	Band1 byte
	Band2 byte
	Band3 byte

	Address string
	Port    int
}

// Copy returns a copy of the frame
func (f *Frame) Copy() *Frame {
	c := *f
	return &c
}

// IsSilence reports whether the voice part is the null pattern
func (f *Frame) IsSilence() bool {
	return bytes.Equal(f.Data[:VoiceFrameLength], NullAMBE[:])
}

// Silence replaces the voice part with the null pattern
func (f *Frame) Silence() {
	copy(f.Data[:VoiceFrameLength], NullAMBE[:])
}

// SetBands sets the Icom band bytes
func (f *Frame) SetBands(b1, b2, b3 byte) {
	f.Band1, f.Band2, f.Band3 = b1, b2, b3
}

// SetDestination sets the network destination
func (f *Frame) SetDestination(address string, port int) {
	f.Address = address
	f.Port = port
}
