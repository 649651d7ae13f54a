package dstar

import "strings"

// Callsign field widths
const (
	LongCallsignLength  = 8
	ShortCallsignLength = 4
)

// Well-known callsign field values
const (
	BlankCallsign = "        "
	CQCQCQ        = "CQCQCQ  "
)

// PadCallsign space-pads or truncates cs to LongCallsignLength
func PadCallsign(cs string) string {
	return padTo(cs, LongCallsignLength)
}

// PadShort space-pads or truncates cs to ShortCallsignLength
func PadShort(cs string) string {
	return padTo(cs, ShortCallsignLength)
}

func padTo(cs string, n int) string {
	if len(cs) >= n {
		return cs[:n]
	}
	return cs + strings.Repeat(" ", n-len(cs))
}

// RepeaterCallsign builds the full repeater callsign, e.g. "GB7XX  B"
func RepeaterCallsign(callsign, band string) string {
	return PadCallsign(padTo(callsign, LongCallsignLength-1) + band)
}

// GatewayCallsign builds the gateway callsign, e.g. "GB7XX  G"
func GatewayCallsign(callsign string) string {
	return padTo(callsign, LongCallsignLength-1) + "G"
}

// BaseCallsign returns the callsign without its module letter
func BaseCallsign(cs string) string {
	return padTo(cs, LongCallsignLength-1)
}

// ModuleLetter returns the last character of a long callsign
func ModuleLetter(cs string) byte {
	if cs == "" {
		return ' '
	}
	return cs[len(cs)-1]
}

// SameBase reports whether two callsigns differ only in their module letter
func SameBase(a, b string) bool {
	return BaseCallsign(a) == BaseCallsign(b)
}

// IsBlank reports whether cs is empty or all spaces
func IsBlank(cs string) bool {
	return strings.TrimSpace(cs) == ""
}

// IsReflector reports whether cs names a DExtra, D-Plus or DCS reflector
func IsReflector(cs string) bool {
	return strings.HasPrefix(cs, "REF") || strings.HasPrefix(cs, "XRF") || strings.HasPrefix(cs, "DCS")
}

// IsCQ reports whether cs is the broadcast destination
func IsCQ(cs string) bool {
	return strings.HasPrefix(cs, "CQCQ")
}

// ReflectorFromCommand converts a link command such as "XRF001AL" into the
// reflector callsign "XRF001 A".
func ReflectorFromCommand(cmd string) string {
	cmd = PadCallsign(cmd)
	return cmd[:LongCallsignLength-2] + " " + string(cmd[LongCallsignLength-2])
}

// RepeaterFromRoute converts a repeater route such as "/GB7XXB" into the
// repeater callsign "GB7XX  B".
func RepeaterFromRoute(route string) string {
	route = PadCallsign(route)
	return route[1:LongCallsignLength-1] + " " + string(route[LongCallsignLength-1])
}
