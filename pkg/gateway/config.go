package gateway

import (
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Timer defaults
const (
	WatchdogTimeout   = 2 * time.Second
	QueryTimeout      = 5 * time.Second
	PollInterval      = 15 * time.Minute
	HeardDebounce     = 100 * time.Millisecond
	DefaultCapacity   = 4
	VoiceFrameSpacing = 20 * time.Millisecond
)

// Features switches optional gateway behaviour on and off
type Features struct {
	DExtra bool
	DPlus  bool
	DCS    bool
	Info   bool
	Echo   bool
	DTMF   bool
}

// DefaultFeatures returns the stock feature set
func DefaultFeatures() Features {
	return Features{
		DExtra: true,
		DPlus:  false,
		DCS:    true,
		Info:   true,
		Echo:   true,
		DTMF:   true,
	}
}

// Config holds the collaborators and settings shared by all sessions
type Config struct {
	// Gateway is the full gateway callsign, e.g. "GB7XX  G"
	Gateway      string
	MaxRepeaters int
	Features     Features

	Reflectors map[dstar.Protocol]Reflector
	// Directory may be nil, in which case directory routing is refused
	Directory Directory
	Cache     Cache
	Restrict  RestrictList
	G2        G2Router
	Groups    GroupRouter
	Journal   Journal
	Recorder  Recorder

	NewCallHandler func(owner CallOwner) CallHandler
	NewDTMF        func() DTMFDecoder
	NewText        func() TextCollector
	NewUnits       func(s *Session) Units

	Logger *logger.Logger
}

// SessionConfig describes one repeater attached to the gateway
type SessionConfig struct {
	Callsign string
	// Band is the module letter. A second character marks a DD session.
	Band     string
	Address  string
	Port     int
	Hardware dstar.HardwareType

	Reflector string
	AtStartup bool
	Reconnect dstar.Reconnect

	Frequency    float64
	Offset       float64
	Range        float64
	Latitude     float64
	Longitude    float64
	AGL          float64
	Description1 string
	Description2 string
	URL          string

	Band1 byte
	Band2 byte
	Band3 byte

	Transport Transport
}
