package gateway

import (
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// clock advances every timer of the session by d and acts on expiry
func (s *Session) clock(d time.Duration) {
	s.units.Info.Clock(d)
	s.units.Message.Clock(d)
	s.units.Weather.Clock(d)
	s.units.Echo.Clock(d)
	s.units.Version.Clock(d)

	s.reconnectTimer.Clock(d)
	s.watchdog.Clock(d)
	s.routeQuery.Clock(d)
	s.linkQuery.Clock(d)
	s.heardTimer.Clock(d)
	s.poll.Clock(d)

	if s.repeaterID != 0 {
		s.txTime += d
	}

	if s.reconnectTimer.HasExpired() {
		s.reconnectExpired()
		s.reconnectTimer.Start()
	}

	if s.routeQuery.HasExpired() {
		s.routeQueryExpired()
	}

	if s.linkQuery.HasExpired() {
		s.linkQueryExpired()
	}

	if s.heardTimer.HasExpired() {
		if s.reg.directory != nil {
			s.reg.directory.SendHeard(s.heardUser, s.heardRepeater)
		}
		s.heardTimer.Stop()
	}

	if s.watchdog.HasExpired() {
		s.watchdogExpired()
	}
}

// reconnectExpired unlinks when there is no startup target, and relinks when
// unlinked or linked somewhere other than the startup target.
func (s *Session) reconnectExpired() {
	if s.linkStatus.IsCCS() {
		return
	}

	startup := s.startupTarget

	switch {
	case s.linkStatus != dstar.LinkNone && dstar.IsBlank(startup):
		s.log.Info("Reconnect timer expired, unlinking", logger.String("target", s.linkTarget))
		s.linkQuery.Stop()
		s.unlinkAll()
		s.setUnlinked()
		s.writeNotLinked()

	case (s.linkStatus == dstar.LinkNone && !dstar.IsBlank(startup)) ||
		(s.linkStatus != dstar.LinkNone && s.linkTarget != startup):
		s.log.Info("Reconnect timer expired, relinking", logger.String("target", startup))
		s.linkQuery.Stop()

		if s.changeModule(startup) {
			return
		}

		s.unlinkAll()
		s.linkOrLookup(startup)
	}
}

func (s *Session) routeQueryExpired() {
	s.routeQuery.Stop()

	var kind string
	switch s.route {
	case dstar.RouteUser:
		kind = "user"
	case dstar.RouteRepeater:
		kind = "repeater"
	default:
		return
	}

	s.log.Warn("Directory did not reply within five seconds", logger.String("lookup", kind))
	s.reg.recorder.DirectoryTimeout(kind)
	s.dropG2()
}

func (s *Session) linkQueryExpired() {
	s.linkQuery.Stop()

	switch s.linkStatus {
	case dstar.LinkPendingLookup:
		s.log.Warn("Directory did not reply within five seconds", logger.String("target", s.linkTarget))
		s.reg.recorder.DirectoryTimeout("repeater")
		s.setUnlinked()
		s.writeNotLinked()

	case dstar.LinkingCCS:
		s.log.Warn("CCS did not reply within five seconds", logger.String("target", s.linkTarget))
		s.ccs.StopLink("", "timeout")
		s.setUnlinked()
		if !s.restoreLinks() {
			s.writeNotLinked()
		}
	}
}

// watchdogExpired ends a stalled RF or busy-channel transmission
func (s *Session) watchdogExpired() {
	s.log.Warn("Radio watchdog expired")
	s.watchdog.Stop()

	if s.repeaterID != 0 {
		s.abortTransmission()
	}

	if s.busyID != 0 {
		s.endBusy()
	}
}

// abortTransmission ends an RF transmission whose end marker never came
func (s *Session) abortTransmission() {
	if s.text == "" {
		s.sendHeard("")
	}
	s.sendStats()

	switch s.route {
	case dstar.RouteUser, dstar.RouteRepeater:
		s.routeQuery.Stop()
		s.g2Header = nil
	case dstar.RouteEcho:
		s.units.Echo.End()
	case dstar.RouteVersion:
		s.units.Version.SendVersion()
	}

	s.endTransmission()
	s.flushAnnouncements()
}

// startup reports the repeater to the directory, connects CCS and makes the
// startup link.
func (s *Session) startup() {
	if dir := s.reg.directory; dir != nil {
		callsign := s.directoryCallsign()

		if s.site.Frequency > 0 {
			dir.ReportQRG(callsign, s.site.Frequency, s.site.Offset, s.site.Range*1000, s.site.AGL)
		}
		if s.site.Latitude != 0 && s.site.Longitude != 0 {
			dir.ReportQTH(callsign, s.site.Latitude, s.site.Longitude, s.site.Description1, s.site.Description2, s.site.URL)
		}
	}

	if s.mode == dstar.ModeDV {
		s.ccs.Connect()
	}

	if !s.atStartup || dstar.IsBlank(s.startupTarget) {
		s.writeNotLinked()
		return
	}

	s.log.Info("Linking at startup", logger.String("target", s.startupTarget))
	s.linkOrLookup(s.startupTarget)
}
