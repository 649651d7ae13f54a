package gateway

import (
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// CallLinkMade is called by the CCS handler when a call is connected.
// Outgoing calls take over the link state; incoming calls only announce.
func (s *Session) CallLinkMade(callsign string, dir dstar.Direction) {
	if dir == dstar.DirectionIncoming {
		temp := Status{Kind: StatusCallLinked, Link: dstar.LinkedCCS, Target: callsign, Temporary: true}
		s.transport.WriteText(temp)
		s.units.Info.SetTempStatus(temp)
		s.triggerInfo()
		return
	}

	if !s.linkStatus.IsCCS() {
		s.log.Debug("Ignoring stale CCS link", logger.String("target", callsign))
		return
	}

	target := callsign
	if dstar.IsBlank(target) {
		target = s.linkTarget
	}

	s.log.Info("CCS link made", logger.String("target", target))
	s.linkQuery.Stop()
	s.setLink(dstar.LinkedCCS, target)

	st := Status{Kind: StatusCallLinked, Link: dstar.LinkedCCS, Target: target}
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.triggerInfo()
}

// CallLinkEnded is called by the CCS handler when a call finishes.
func (s *Session) CallLinkEnded(callsign string, dir dstar.Direction) {
	if dir == dstar.DirectionIncoming {
		s.writeCallTemp(Status{Kind: StatusCallEnded, Link: s.linkStatus, Target: s.linkTarget, Temporary: true})
		return
	}

	if !s.linkStatus.IsCCS() {
		s.log.Debug("Ignoring stale CCS end", logger.String("target", callsign))
		return
	}

	s.log.Info("CCS link ended", logger.String("target", s.linkTarget))
	s.endCall(Status{Kind: StatusCallEnded, Link: dstar.LinkNone, Temporary: true})
}

// CallLinkFailed is called by the CCS handler when a call cannot be made.
// dtmf is the number that was dialled.
func (s *Session) CallLinkFailed(dtmf string, dir dstar.Direction) {
	if dir == dstar.DirectionIncoming {
		s.writeCallTemp(Status{Kind: StatusCallFailed, Link: s.linkStatus, Target: dtmf, Temporary: true})
		return
	}

	if !s.linkStatus.IsCCS() {
		s.log.Debug("Ignoring stale CCS failure", logger.String("dtmf", dtmf))
		return
	}

	s.log.Info("CCS link failed", logger.String("dtmf", dtmf))
	s.endCall(Status{Kind: StatusCallFailed, Link: dstar.LinkNone, Target: dtmf, Temporary: true})
}

// endCall drops the CCS link state and restores reflector links, or
// announces temp followed by not linked.
func (s *Session) endCall(temp Status) {
	s.setUnlinked()
	s.linkQuery.Stop()

	if s.restoreLinks() {
		return
	}

	st := Status{Kind: StatusNotLinked, Link: dstar.LinkNone}
	s.transport.WriteText(temp)
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.units.Info.SetTempStatus(temp)
	s.triggerInfo()
}

func (s *Session) writeCallTemp(temp Status) {
	s.transport.WriteText(temp)
	s.units.Info.SetTempStatus(temp)
	s.triggerInfo()
}
