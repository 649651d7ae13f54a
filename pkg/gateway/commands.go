package gateway

import (
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// isCCSCommand reports whether cmd is a CCS call ("C" and three digits) or
// the CCS cancel command.
func isCCSCommand(cmd string) bool {
	if cmd == commandCancel {
		return true
	}
	if len(cmd) < 4 || cmd[0] != 'C' {
		return false
	}
	for i := 1; i < 4; i++ {
		if cmd[i] < '0' || cmd[i] > '9' {
			return false
		}
	}
	return true
}

// ccsCommand starts or cancels a CCS call. Reflector links are suspended
// for the duration of the call.
func (s *Session) ccsCommand(callsign, user, via string) {
	if callsign == commandCancel {
		s.log.Info("CCS cancel", logger.String("user", user), logger.String("via", via))
		s.ccs.StopLink(user, via)
		return
	}

	if s.ccs.Status() != CallConnected {
		s.log.Warn("CCS call requested but CCS is not connected",
			logger.String("user", user), logger.String("target", callsign))
		return
	}

	target := callsign[1:]
	s.log.Info("CCS call", logger.String("user", user), logger.String("target", target), logger.String("via", via))

	s.suspendLinks()
	s.setLink(dstar.LinkingCCS, target)
	s.linkQuery.Start()
	s.ccs.StartLink(target, user, via)
}

// reflectorCommand handles the link and unlink command grammar:
// "XRF001AL" links to "XRF001 A", "       L" links to the startup target and
// anything ending in U unlinks.
func (s *Session) reflectorCommand(callsign, user, via string) {
	if s.linkStatus.IsCCS() {
		return
	}

	if s.reconnect == dstar.ReconnectFixed {
		s.log.Debug("Ignoring link command on fixed link", logger.String("user", user), logger.String("command", callsign))
		return
	}

	switch dstar.ModuleLetter(callsign) {
	case 'U':
		if s.linkStatus == dstar.LinkNone {
			return
		}

		s.log.Info("Unlink command", logger.String("user", user), logger.String("via", via))
		s.linkQuery.Stop()
		s.unlinkAll()
		s.setUnlinked()
		s.writeNotLinked()

	case 'L':
		var target string
		if callsign == commandLink {
			if dstar.IsBlank(s.startupTarget) {
				return
			}
			target = s.startupTarget
		} else {
			target = dstar.ReflectorFromCommand(callsign)
		}

		if s.linkStatus != dstar.LinkNone && target == s.linkTarget {
			return
		}

		if target == s.rptCallsign {
			s.log.Warn("Ignoring link to self", logger.String("user", user), logger.String("via", via))
			s.triggerInfo()
			return
		}

		s.log.Info("Link command", logger.String("user", user), logger.String("target", target), logger.String("via", via))
		s.linkQuery.Stop()

		if s.changeModule(target) {
			return
		}

		s.unlinkAll()
		s.linkTo(target)
	}
}
