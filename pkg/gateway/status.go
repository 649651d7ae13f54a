package gateway

import "github.com/dbehnke/dstar-gateway/pkg/dstar"

// StatusKind is the kind of status event shown to RF users
type StatusKind int

const (
	StatusLinking StatusKind = iota
	StatusLinked
	StatusNotLinked
	StatusBusy
	StatusCallLinked
	StatusCallEnded
	StatusCallFailed
)

// String returns the string representation of the status kind
func (k StatusKind) String() string {
	switch k {
	case StatusLinking:
		return "linking"
	case StatusLinked:
		return "linked"
	case StatusNotLinked:
		return "not_linked"
	case StatusBusy:
		return "busy"
	case StatusCallLinked:
		return "call_linked"
	case StatusCallEnded:
		return "call_ended"
	case StatusCallFailed:
		return "call_failed"
	default:
		return "unknown"
	}
}

// Status is a language-independent status event. Text is produced by the
// receiver, see package text.
type Status struct {
	Kind StatusKind
	// Link is the session link status when the event was raised
	Link dstar.LinkStatus
	// Target is the callsign the event is about
	Target string
	// Temporary events are shown briefly before the permanent one
	Temporary bool
}
