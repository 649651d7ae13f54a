package gateway

import (
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// Transport delivers traffic to the physical repeater behind a session.
type Transport interface {
	WriteHeader(h *dstar.Header)
	WriteFrame(f *dstar.Frame)
	WriteText(st Status)
	WriteStatus(text string)
}

// LinkOwner receives link results from a reflector protocol. Calls must be
// made from the engine goroutine, see Engine.Post.
type LinkOwner interface {
	RepeaterCallsign() string
	LinkUp(p dstar.Protocol, callsign string)
	LinkFailed(p dstar.Protocol, callsign string, recoverable bool) bool
	LinkRefused(p dstar.Protocol, callsign string)
}

// Reflector is one reflector link protocol shared by all sessions.
//
// Tearing down a link is reported back through LinkFailed with
// recoverable set to false.
type Reflector interface {
	Link(owner LinkOwner, local, target, address string)
	// Unlink drops every link held by owner
	Unlink(owner LinkOwner)
	// UnlinkExcept drops every link held by owner other than keep
	UnlinkExcept(owner LinkOwner, keep string)
	// UnlinkTarget drops only the link to target
	UnlinkTarget(owner LinkOwner, target string)
	Relink(owner LinkOwner, target string)
	WriteHeader(owner LinkOwner, h *dstar.Header, dir dstar.Direction)
	WriteFrame(owner LinkOwner, f *dstar.Frame, dir dstar.Direction)
}

// HeardInfo is the header summary reported to the directory.
type HeardInfo struct {
	MyCall1  string
	MyCall2  string
	YourCall string
	RptCall1 string
	RptCall2 string
	Flag1    byte
	Flag2    byte
	Flag3    byte
}

// Directory is the presence and lookup service. Lookup replies come back
// through Registry.ResolveUser and Registry.ResolveRepeater.
type Directory interface {
	FindUser(callsign string)
	FindRepeater(callsign string)
	SendHeard(user, repeater string)
	SendHeardWithText(h HeardInfo, destination, text string)
	SendHeardWithStats(h HeardInfo, frames, silence, errors uint)
	KickWatchdog(callsign, text string)
	ReportQRG(callsign string, frequency, offset, rangeMeters, agl float64)
	ReportQTH(callsign string, latitude, longitude float64, desc1, desc2, url string)
}

// RepeaterEntry is a cached repeater or reflector location.
type RepeaterEntry struct {
	Repeater string
	Gateway  string
	Address  string
	Protocol dstar.Protocol
}

// UserEntry is a cached user location.
type UserEntry struct {
	User     string
	Repeater string
	Gateway  string
	Address  string
}

// Cache answers lookups from locally known data.
type Cache interface {
	FindRepeater(callsign string) (RepeaterEntry, bool)
	FindUser(callsign string) (UserEntry, bool)
}

// RestrictList reports callsigns that may not issue commands.
type RestrictList interface {
	IsRestricted(callsign string) bool
}

// G2Router sends directory-routed traffic. Destinations are already set on
// the header or frame.
type G2Router interface {
	WriteHeader(h *dstar.Header)
	WriteFrame(f *dstar.Frame)
}

// GroupRouter routes traffic to StarNet groups. Groups are addressed by
// callsign and re-resolved on every write; WriteFrame returns false when
// the group no longer exists.
type GroupRouter interface {
	Find(h *dstar.Header) (string, bool)
	WriteHeader(group string, h *dstar.Header)
	WriteFrame(group string, f *dstar.Frame) bool
}

// Unit is an announcement unit driven by the session clock.
type Unit interface {
	Cancel()
	Clock(d time.Duration)
}

// EchoUnit records a transmission and plays it back.
type EchoUnit interface {
	Unit
	WriteHeader(h *dstar.Header)
	WriteFrame(f *dstar.Frame)
	End()
}

// InfoUnit announces the link status.
type InfoUnit interface {
	Unit
	SendStatus()
	SetStatus(st Status)
	SetTempStatus(st Status)
}

// AnnouncementUnit plays a canned message or weather announcement.
type AnnouncementUnit interface {
	Unit
	SendAnnouncement()
}

// VersionUnit announces the gateway version.
type VersionUnit interface {
	Unit
	SendVersion()
}

// Units is the set of announcement units owned by one session.
type Units struct {
	Echo    EchoUnit
	Info    InfoUnit
	Message AnnouncementUnit
	Weather AnnouncementUnit
	Version VersionUnit
}

// CallStatus is the connection state of the CCS server link
type CallStatus int

const (
	CallDisconnected CallStatus = iota
	CallConnecting
	CallConnected
)

// CallOwner receives CCS call results. Implemented by *Session.
type CallOwner interface {
	RepeaterCallsign() string
	CallLinkMade(callsign string, dir dstar.Direction)
	CallLinkEnded(callsign string, dir dstar.Direction)
	CallLinkFailed(dtmf string, dir dstar.Direction)
}

// CallHandler is the per-session CCS peer-to-peer call client.
type CallHandler interface {
	Connect()
	Status() CallStatus
	StartLink(target, user, via string)
	StopLink(user, via string)
	Unlink(target string)
	SetReflector(callsign string)
	WriteHeard(h *dstar.Header)
	WriteHeader(h *dstar.Header)
	WriteFrame(f *dstar.Frame)
}

// DTMFDecoder extracts keyed commands from voice frames.
type DTMFDecoder interface {
	Reset()
	// Decode returns true when the frame carried a tone
	Decode(data []byte, end bool) bool
	HasCommand() bool
	Translate() string
}

// TextCollector assembles slow-data text from voice frames.
type TextCollector interface {
	Reset()
	Write(f *dstar.Frame)
	HasData() bool
	Data() string
}

// TransmissionRecord summarises a finished RF transmission.
type TransmissionRecord struct {
	Repeater string
	MyCall1  string
	MyCall2  string
	YourCall string
	Route    dstar.RouteStatus
	Link     string
	Frames   uint
	Silence  uint
	Errors   uint
	Text     string
	Duration time.Duration
}

// Journal keeps a persistent record of RF activity.
type Journal interface {
	LogHeader(source string, h *dstar.Header)
	LogTransmission(rec TransmissionRecord)
}

// Recorder observes gateway events for metrics and dashboards.
type Recorder interface {
	HeaderReceived(repeater string)
	FrameReceived(repeater string, silence bool, errors uint)
	LinkStateChanged(repeater string, status dstar.LinkStatus, target string)
	DirectoryQuery(kind string)
	DirectoryTimeout(kind string)
	RouteSelected(repeater string, route dstar.RouteStatus)
}

// Recorders fans events out to several recorders.
type Recorders []Recorder

func (rs Recorders) HeaderReceived(repeater string) {
	for _, r := range rs {
		r.HeaderReceived(repeater)
	}
}

func (rs Recorders) FrameReceived(repeater string, silence bool, errors uint) {
	for _, r := range rs {
		r.FrameReceived(repeater, silence, errors)
	}
}

func (rs Recorders) LinkStateChanged(repeater string, status dstar.LinkStatus, target string) {
	for _, r := range rs {
		r.LinkStateChanged(repeater, status, target)
	}
}

func (rs Recorders) DirectoryQuery(kind string) {
	for _, r := range rs {
		r.DirectoryQuery(kind)
	}
}

func (rs Recorders) DirectoryTimeout(kind string) {
	for _, r := range rs {
		r.DirectoryTimeout(kind)
	}
}

func (rs Recorders) RouteSelected(repeater string, route dstar.RouteStatus) {
	for _, r := range rs {
		r.RouteSelected(repeater, route)
	}
}
