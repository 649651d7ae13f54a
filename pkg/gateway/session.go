package gateway

import (
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/dbehnke/dstar-gateway/pkg/timer"
)

// Session is the controller for one repeater attached to the gateway.
type Session struct {
	reg *Registry
	log *logger.Logger

	// Identity
	index       int
	rptCallsign string
	gwyCallsign string
	band        byte
	mode        dstar.Mode
	address     string
	port        int
	hwType      dstar.HardwareType
	transport   Transport
	site        SessionConfig
	band1       byte
	band2       byte
	band3       byte

	// Current transmission
	repeaterID uint16
	busyID     uint16
	watchdog   *timer.Timer
	myCall1    string
	myCall2    string
	yourCall   string
	rptCall1   string
	rptCall2   string
	flag1      byte
	flag2      byte
	flag3      byte
	restricted bool
	frames     uint
	silence    uint
	errors     uint
	collector  TextCollector
	text       string
	dtmf       DTMFDecoder
	txTime     time.Duration

	// Routing of the current transmission
	route      dstar.RouteStatus
	xband      int
	group      string
	g2User     string
	g2Repeater string
	g2Gateway  string
	g2Address  string
	g2Header   *dstar.Header
	routeQuery *timer.Timer

	// Link state
	linkStatus     dstar.LinkStatus
	linkTarget     string
	linkGateway    string
	reconnect      dstar.Reconnect
	atStartup      bool
	startupTarget  string
	reconnectTimer *timer.Timer
	relink         bool
	lastReflector  string
	linkQuery      *timer.Timer

	// Announcements
	units      Units
	infoNeeded bool
	msgNeeded  bool
	wxNeeded   bool

	ccs CallHandler

	// Icom heard reports and controller polls
	heardUser     string
	heardRepeater string
	heardTimer    *timer.Timer
	poll          *timer.Timer
}

// Snapshot is a read-only view of a session for status export
type Snapshot struct {
	Index      int
	Callsign   string
	Mode       dstar.Mode
	Hardware   dstar.HardwareType
	LinkStatus dstar.LinkStatus
	LinkTarget string
	Startup    string
	Reconnect  dstar.Reconnect
	Route      dstar.RouteStatus
	Active     bool
	Busy       bool
	Restricted bool
	User       string
}

func newSession(reg *Registry, index int, sc SessionConfig) *Session {
	band := sc.Band
	if band == "" {
		band = " "
	}

	s := &Session{
		reg:            reg,
		index:          index,
		rptCallsign:    dstar.RepeaterCallsign(sc.Callsign, band[:1]),
		gwyCallsign:    dstar.GatewayCallsign(sc.Callsign),
		band:           band[0],
		mode:           dstar.ModeDV,
		address:        sc.Address,
		port:           sc.Port,
		hwType:         sc.Hardware,
		transport:      sc.Transport,
		site:           sc,
		band1:          sc.Band1,
		band2:          sc.Band2,
		band3:          sc.Band3,
		watchdog:       timer.New(WatchdogTimeout),
		routeQuery:     timer.New(QueryTimeout),
		linkQuery:      timer.New(QueryTimeout),
		xband:          -1,
		reconnect:      sc.Reconnect,
		atStartup:      sc.AtStartup,
		startupTarget:  sc.Reflector,
		reconnectTimer: timer.New(sc.Reconnect.Duration()),
		heardTimer:     timer.New(HeardDebounce),
		poll:           timer.New(PollInterval),
	}
	if len(band) > 1 {
		s.mode = dstar.ModeDD
	}
	if s.transport == nil {
		s.transport = nopTransport{}
	}

	s.log = reg.log.With(logger.String("repeater", s.rptCallsign))

	s.dtmf = nopDTMF{}
	if reg.cfg.NewDTMF != nil {
		if d := reg.cfg.NewDTMF(); d != nil {
			s.dtmf = d
		}
	}
	s.collector = nopText{}
	if reg.cfg.NewText != nil {
		if c := reg.cfg.NewText(); c != nil {
			s.collector = c
		}
	}
	s.ccs = nopCall{}
	if reg.cfg.NewCallHandler != nil {
		if c := reg.cfg.NewCallHandler(s); c != nil {
			s.ccs = c
		}
	}
	if reg.cfg.NewUnits != nil {
		s.units = reg.cfg.NewUnits(s)
	}
	s.units = s.units.withDefaults()

	s.poll.Start()
	s.reconnectTimer.Start()

	return s
}

// Index returns the registry slot of the session
func (s *Session) Index() int {
	return s.index
}

// RepeaterCallsign returns the full repeater callsign, e.g. "GB7XX  B"
func (s *Session) RepeaterCallsign() string {
	return s.rptCallsign
}

// GatewayCallsign returns the gateway callsign of this repeater
func (s *Session) GatewayCallsign() string {
	return s.gwyCallsign
}

// Mode returns whether this is a DV or DD session
func (s *Session) Mode() dstar.Mode {
	return s.mode
}

// LinkStatus returns the current link phase
func (s *Session) LinkStatus() dstar.LinkStatus {
	return s.linkStatus
}

// LinkTarget returns the current link target, empty when unlinked
func (s *Session) LinkTarget() string {
	return s.linkTarget
}

// Route returns the routing classification of the current transmission
func (s *Session) Route() dstar.RouteStatus {
	return s.route
}

// ActiveID returns the frame id of the RF transmission in progress, 0 when idle
func (s *Session) ActiveID() uint16 {
	return s.repeaterID
}

// BusyID returns the frame id of the monitored network transmission, 0 when idle
func (s *Session) BusyID() uint16 {
	return s.busyID
}

// Snapshot returns a read-only view of the session
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Index:      s.index,
		Callsign:   s.rptCallsign,
		Mode:       s.mode,
		Hardware:   s.hwType,
		LinkStatus: s.linkStatus,
		LinkTarget: s.linkTarget,
		Startup:    s.startupTarget,
		Reconnect:  s.reconnect,
		Route:      s.route,
		Active:     s.repeaterID != 0,
		Busy:       s.busyID != 0,
		Restricted: s.restricted,
		User:       s.myCall1,
	}
}

// xbandPartner re-resolves the cross-band partner through the registry
func (s *Session) xbandPartner() *Session {
	if s.xband < 0 {
		return nil
	}
	return s.reg.At(s.xband)
}

func (s *Session) heardInfo() HeardInfo {
	return HeardInfo{
		MyCall1:  s.myCall1,
		MyCall2:  s.myCall2,
		YourCall: s.yourCall,
		RptCall1: s.rptCall1,
		RptCall2: s.rptCall2,
		Flag1:    s.flag1,
		Flag2:    s.flag2,
		Flag3:    s.flag3,
	}
}

func (s *Session) directoryCallsign() string {
	if s.mode == dstar.ModeDD {
		return s.rptCallsign + "D"
	}
	return s.rptCallsign
}

func (s *Session) setRoute(r dstar.RouteStatus) {
	s.route = r
	if r != dstar.RouteNone {
		s.reg.recorder.RouteSelected(s.rptCallsign, r)
	}
}

// endTransmission clears everything scoped to one RF transmission
func (s *Session) endTransmission() {
	s.repeaterID = 0
	s.route = dstar.RouteNone
	s.xband = -1
	s.group = ""
}

func (s *Session) clearG2() {
	s.g2User = ""
	s.g2Repeater = ""
	s.g2Gateway = ""
	s.g2Header = nil
}

func (s *Session) cancelUnits() {
	s.units.Info.Cancel()
	s.units.Message.Cancel()
	s.units.Weather.Cancel()
	s.units.Echo.Cancel()
	s.units.Version.Cancel()
}

// flushAnnouncements plays announcements deferred until the end of a transmission
func (s *Session) flushAnnouncements() {
	if s.infoNeeded {
		s.units.Info.SendStatus()
		s.infoNeeded = false
	}
	if s.msgNeeded {
		s.units.Message.SendAnnouncement()
		s.msgNeeded = false
	}
	if s.wxNeeded {
		s.units.Weather.SendAnnouncement()
		s.wxNeeded = false
	}
}

func (s *Session) shutdown() {
	for _, p := range []dstar.Protocol{dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS} {
		s.reg.reflector(p).Unlink(s)
	}
	if s.linkStatus.IsCCS() {
		s.ccs.StopLink("", "shutdown")
	}
	s.cancelUnits()
	s.watchdog.Stop()
	s.routeQuery.Stop()
	s.linkQuery.Stop()
	s.reconnectTimer.Stop()
	s.heardTimer.Stop()
	s.poll.Stop()
}
