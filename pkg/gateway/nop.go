package gateway

import (
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// No-op collaborators stand in for anything left unconfigured.

type nopTransport struct{}

func (nopTransport) WriteHeader(*dstar.Header) {}
func (nopTransport) WriteFrame(*dstar.Frame) {}
func (nopTransport) WriteText(Status) {}
func (nopTransport) WriteStatus(string) {}

type nopReflector struct{}

func (nopReflector) Link(LinkOwner, string, string, string) {}
func (nopReflector) Unlink(LinkOwner) {}
func (nopReflector) UnlinkExcept(LinkOwner, string) {}
func (nopReflector) UnlinkTarget(LinkOwner, string) {}
func (nopReflector) Relink(LinkOwner, string) {}
func (nopReflector) WriteHeader(LinkOwner, *dstar.Header, dstar.Direction) {}
func (nopReflector) WriteFrame(LinkOwner, *dstar.Frame, dstar.Direction) {}

type nopCache struct{}

func (nopCache) FindRepeater(string) (RepeaterEntry, bool) { return RepeaterEntry{}, false }
func (nopCache) FindUser(string) (UserEntry, bool) { return UserEntry{}, false }

type nopG2 struct{}

func (nopG2) WriteHeader(*dstar.Header) {}
func (nopG2) WriteFrame(*dstar.Frame) {}

type nopGroups struct{}

func (nopGroups) Find(*dstar.Header) (string, bool) { return "", false }
func (nopGroups) WriteHeader(string, *dstar.Header) {}
func (nopGroups) WriteFrame(string, *dstar.Frame) bool { return false }

type nopUnit struct{}

func (nopUnit) Cancel() {}
func (nopUnit) Clock(time.Duration) {}
func (nopUnit) WriteHeader(*dstar.Header) {}
func (nopUnit) WriteFrame(*dstar.Frame) {}
func (nopUnit) End() {}
func (nopUnit) SendStatus() {}
func (nopUnit) SetStatus(Status) {}
func (nopUnit) SetTempStatus(Status) {}
func (nopUnit) SendAnnouncement() {}
func (nopUnit) SendVersion() {}

type nopCall struct{}

func (nopCall) Connect() {}
func (nopCall) Status() CallStatus { return CallDisconnected }
func (nopCall) StartLink(string, string, string) {}
func (nopCall) StopLink(string, string) {}
func (nopCall) Unlink(string) {}
func (nopCall) SetReflector(string) {}
func (nopCall) WriteHeard(*dstar.Header) {}
func (nopCall) WriteHeader(*dstar.Header) {}
func (nopCall) WriteFrame(*dstar.Frame) {}

type nopDTMF struct{}

func (nopDTMF) Reset() {}
func (nopDTMF) Decode([]byte, bool) bool { return false }
func (nopDTMF) HasCommand() bool { return false }
func (nopDTMF) Translate() string { return "" }

type nopText struct{}

func (nopText) Reset() {}
func (nopText) Write(*dstar.Frame) {}
func (nopText) HasData() bool { return false }
func (nopText) Data() string { return "" }

type nopJournal struct{}

func (nopJournal) LogHeader(string, *dstar.Header) {}
func (nopJournal) LogTransmission(TransmissionRecord) {}

type nopRecorder struct{}

func (nopRecorder) HeaderReceived(string) {}
func (nopRecorder) FrameReceived(string, bool, uint) {}
func (nopRecorder) LinkStateChanged(string, dstar.LinkStatus, string) {}
func (nopRecorder) DirectoryQuery(string) {}
func (nopRecorder) DirectoryTimeout(string) {}
func (nopRecorder) RouteSelected(string, dstar.RouteStatus) {}

func (u Units) withDefaults() Units {
	if u.Echo == nil {
		u.Echo = nopUnit{}
	}
	if u.Info == nil {
		u.Info = nopUnit{}
	}
	if u.Message == nil {
		u.Message = nopUnit{}
	}
	if u.Weather == nil {
		u.Weather = nopUnit{}
	}
	if u.Version == nil {
		u.Version = nopUnit{}
	}
	return u
}
