package dstar

import (
	"fmt"
	"strings"
	"time"
)

// Protocol identifies a reflector link protocol
type Protocol int

const (
	ProtocolNone Protocol = iota
	ProtocolDExtra
	ProtocolDPlus
	ProtocolDCS
	ProtocolLoopback
	ProtocolCCS
)

// String returns the string representation of the protocol
func (p Protocol) String() string {
	switch p {
	case ProtocolDExtra:
		return "dextra"
	case ProtocolDPlus:
		return "dplus"
	case ProtocolDCS:
		return "dcs"
	case ProtocolLoopback:
		return "loopback"
	case ProtocolCCS:
		return "ccs"
	default:
		return "none"
	}
}

// ParseProtocol converts a protocol name into a Protocol
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dextra", "xrf":
		return ProtocolDExtra, nil
	case "dplus", "d-plus", "ref":
		return ProtocolDPlus, nil
	case "dcs":
		return ProtocolDCS, nil
	case "loopback":
		return ProtocolLoopback, nil
	case "ccs":
		return ProtocolCCS, nil
	default:
		return ProtocolNone, fmt.Errorf("unknown protocol %q", s)
	}
}

// LinkStatus is the link phase of a repeater session
type LinkStatus int

const (
	LinkNone LinkStatus = iota
	LinkPendingLookup
	LinkingDExtra
	LinkedDExtra
	LinkingDPlus
	LinkedDPlus
	LinkingDCS
	LinkedDCS
	LinkingLoopback
	LinkedLoopback
	LinkingCCS
	LinkedCCS
)

// String returns the string representation of the link status
func (s LinkStatus) String() string {
	switch s {
	case LinkNone:
		return "unlinked"
	case LinkPendingLookup:
		return "pending_lookup"
	case LinkingDExtra:
		return "linking_dextra"
	case LinkedDExtra:
		return "linked_dextra"
	case LinkingDPlus:
		return "linking_dplus"
	case LinkedDPlus:
		return "linked_dplus"
	case LinkingDCS:
		return "linking_dcs"
	case LinkedDCS:
		return "linked_dcs"
	case LinkingLoopback:
		return "linking_loopback"
	case LinkedLoopback:
		return "linked_loopback"
	case LinkingCCS:
		return "linking_ccs"
	case LinkedCCS:
		return "linked_ccs"
	default:
		return "unknown"
	}
}

// Protocol returns the protocol a linking or linked status belongs to
func (s LinkStatus) Protocol() Protocol {
	switch s {
	case LinkingDExtra, LinkedDExtra:
		return ProtocolDExtra
	case LinkingDPlus, LinkedDPlus:
		return ProtocolDPlus
	case LinkingDCS, LinkedDCS:
		return ProtocolDCS
	case LinkingLoopback, LinkedLoopback:
		return ProtocolLoopback
	case LinkingCCS, LinkedCCS:
		return ProtocolCCS
	default:
		return ProtocolNone
	}
}

// IsLinking reports whether a link request is in flight
func (s LinkStatus) IsLinking() bool {
	switch s {
	case LinkingDExtra, LinkingDPlus, LinkingDCS, LinkingLoopback, LinkingCCS:
		return true
	}
	return false
}

// IsLinked reports whether a link is established
func (s LinkStatus) IsLinked() bool {
	switch s {
	case LinkedDExtra, LinkedDPlus, LinkedDCS, LinkedLoopback, LinkedCCS:
		return true
	}
	return false
}

// IsCCS reports whether a CCS call owns the session
func (s LinkStatus) IsCCS() bool {
	return s == LinkingCCS || s == LinkedCCS
}

// IsReflector reports whether the status is a linking or linked reflector state
func (s LinkStatus) IsReflector() bool {
	switch s.Protocol() {
	case ProtocolDExtra, ProtocolDPlus, ProtocolDCS, ProtocolLoopback:
		return true
	}
	return false
}

// LinkingStatus returns the linking status for a protocol
func LinkingStatus(p Protocol) LinkStatus {
	switch p {
	case ProtocolDExtra:
		return LinkingDExtra
	case ProtocolDPlus:
		return LinkingDPlus
	case ProtocolDCS:
		return LinkingDCS
	case ProtocolLoopback:
		return LinkingLoopback
	case ProtocolCCS:
		return LinkingCCS
	default:
		return LinkNone
	}
}

// LinkedStatus returns the linked status for a protocol
func LinkedStatus(p Protocol) LinkStatus {
	switch p {
	case ProtocolDExtra:
		return LinkedDExtra
	case ProtocolDPlus:
		return LinkedDPlus
	case ProtocolDCS:
		return LinkedDCS
	case ProtocolLoopback:
		return LinkedLoopback
	case ProtocolCCS:
		return LinkedCCS
	default:
		return LinkNone
	}
}

// RouteStatus classifies the destination of the current RF transmission
type RouteStatus int

const (
	RouteNone RouteStatus = iota
	RouteLocal
	RouteUser
	RouteRepeater
	RouteOK
	RouteXBand
	RouteStarNet
	RouteEcho
	RouteVersion
)

// String returns the string representation of the route status
func (r RouteStatus) String() string {
	switch r {
	case RouteNone:
		return "none"
	case RouteLocal:
		return "local"
	case RouteUser:
		return "user"
	case RouteRepeater:
		return "repeater"
	case RouteOK:
		return "ok"
	case RouteXBand:
		return "xband"
	case RouteStarNet:
		return "starnet"
	case RouteEcho:
		return "echo"
	case RouteVersion:
		return "version"
	default:
		return "unknown"
	}
}

// Direction tags traffic written to a reflector protocol
type Direction int

const (
	DirectionIncoming Direction = iota
	DirectionOutgoing
)

// String returns the string representation of the direction
func (d Direction) String() string {
	if d == DirectionOutgoing {
		return "outgoing"
	}
	return "incoming"
}

// AudioSource identifies where network-side traffic came from
type AudioSource int

const (
	SourceRF AudioSource = iota
	SourceDPlus
	SourceDExtra
	SourceDCS
	SourceG2
	SourceInfo
	SourceVersion
	SourceXBand
	SourceEcho
	SourceDup
	SourceStarNet
	SourceCCS
)

// String returns the string representation of the audio source
func (a AudioSource) String() string {
	switch a {
	case SourceRF:
		return "rf"
	case SourceDPlus:
		return "dplus"
	case SourceDExtra:
		return "dextra"
	case SourceDCS:
		return "dcs"
	case SourceG2:
		return "g2"
	case SourceInfo:
		return "info"
	case SourceVersion:
		return "version"
	case SourceXBand:
		return "xband"
	case SourceEcho:
		return "echo"
	case SourceDup:
		return "dup"
	case SourceStarNet:
		return "starnet"
	case SourceCCS:
		return "ccs"
	default:
		return "unknown"
	}
}

// IsReflector reports whether the source is one of the reflector protocols
func (a AudioSource) IsReflector() bool {
	return a == SourceDPlus || a == SourceDExtra || a == SourceDCS
}

// IsTerminal reports whether traffic from this source must not be fanned out
// to outgoing reflector links.
func (a AudioSource) IsTerminal() bool {
	switch a {
	case SourceG2, SourceInfo, SourceVersion, SourceXBand, SourceEcho:
		return true
	}
	return false
}

// HardwareType is the kind of repeater controller behind a session
type HardwareType int

const (
	HardwareHomebrew HardwareType = iota
	HardwareIcom
	HardwareDummy
)

// String returns the string representation of the hardware type
func (h HardwareType) String() string {
	switch h {
	case HardwareHomebrew:
		return "homebrew"
	case HardwareIcom:
		return "icom"
	case HardwareDummy:
		return "dummy"
	default:
		return "unknown"
	}
}

// ParseHardwareType converts a hardware name into a HardwareType
func ParseHardwareType(s string) (HardwareType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "homebrew":
		return HardwareHomebrew, nil
	case "icom":
		return HardwareIcom, nil
	case "dummy":
		return HardwareDummy, nil
	default:
		return HardwareHomebrew, fmt.Errorf("unknown hardware type %q", s)
	}
}

// Mode distinguishes digital voice sessions from digital data sessions
type Mode int

const (
	ModeDV Mode = iota
	ModeDD
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeDD {
		return "dd"
	}
	return "dv"
}

// Reconnect is the automatic relink policy of a session
type Reconnect int

const (
	ReconnectNever Reconnect = iota
	ReconnectFixed
	Reconnect5Mins
	Reconnect10Mins
	Reconnect15Mins
	Reconnect20Mins
	Reconnect25Mins
	Reconnect30Mins
	Reconnect60Mins
	Reconnect90Mins
	Reconnect120Mins
	Reconnect180Mins
)

var reconnectMinutes = map[Reconnect]int{
	Reconnect5Mins:   5,
	Reconnect10Mins:  10,
	Reconnect15Mins:  15,
	Reconnect20Mins:  20,
	Reconnect25Mins:  25,
	Reconnect30Mins:  30,
	Reconnect60Mins:  60,
	Reconnect90Mins:  90,
	Reconnect120Mins: 120,
	Reconnect180Mins: 180,
}

// Duration returns the reconnect interval, zero for never and fixed
func (r Reconnect) Duration() time.Duration {
	return time.Duration(reconnectMinutes[r]) * time.Minute
}

// String returns the string representation of the reconnect policy
func (r Reconnect) String() string {
	switch r {
	case ReconnectNever:
		return "never"
	case ReconnectFixed:
		return "fixed"
	}
	if m, ok := reconnectMinutes[r]; ok {
		return fmt.Sprintf("%dm", m)
	}
	return "unknown"
}

// ParseReconnect converts "never", "fixed" or a minute interval such as
// "30m" or "30" into a Reconnect policy.
func ParseReconnect(s string) (Reconnect, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "never":
		return ReconnectNever, nil
	case "fixed":
		return ReconnectFixed, nil
	}
	v = strings.TrimSuffix(strings.TrimSuffix(v, "mins"), "m")
	for r, m := range reconnectMinutes {
		if fmt.Sprint(m) == v {
			return r, nil
		}
	}
	return ReconnectNever, fmt.Errorf("unknown reconnect policy %q", s)
}
