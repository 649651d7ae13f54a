package gateway

import (
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Link sets the startup target and reconnect policy and links to the new
// target. An empty target unlinks. Any CCS call in progress is dropped.
func (s *Session) Link(reconnect dstar.Reconnect, target string) {
	if s.linkStatus.IsCCS() {
		s.log.Info("Dropping CCS link", logger.String("target", s.linkTarget))
		s.ccs.StopLink("", "remote")
		s.setUnlinked()
		s.linkQuery.Stop()
	}

	s.startupTarget = target
	s.reconnect = reconnect
	s.reconnectTimer.Stop()
	s.reconnectTimer.StartWith(reconnect.Duration())

	if s.linkStatus != dstar.LinkNone && s.linkTarget == target {
		return
	}
	if dstar.IsBlank(target) {
		if s.linkStatus == dstar.LinkNone {
			return
		}
		s.log.Info("Unlinking", logger.String("target", s.linkTarget))
		s.unlinkAll()
		s.setUnlinked()
		s.writeNotLinked()
		return
	}

	s.log.Info("Linking", logger.String("target", target), logger.String("reconnect", reconnect.String()))

	if s.changeModule(target) {
		return
	}

	s.unlinkAll()
	s.linkOrLookup(target)
}

// Unlink drops the link to target on one protocol. Links pinned by the fixed
// reconnect policy are refused. The reflector reports the teardown through
// LinkFailed.
func (s *Session) Unlink(p dstar.Protocol, target string) {
	if p == dstar.ProtocolCCS {
		s.ccs.Unlink(target)
		return
	}

	if s.linkStatus.IsCCS() {
		s.log.Info("Ignoring unlink during CCS call", logger.String("target", target))
		return
	}

	if s.reconnect == dstar.ReconnectFixed && s.linkTarget == target {
		s.log.Warn("Cannot unlink fixed link", logger.String("target", target))
		return
	}

	switch p {
	case dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS, dstar.ProtocolLoopback:
		s.reg.reflector(p).UnlinkTarget(s, target)
	}
}

// LinkUp is called by a reflector protocol once a link is established.
func (s *Session) LinkUp(p dstar.Protocol, callsign string) {
	var linked dstar.LinkStatus
	switch {
	case s.linkStatus == dstar.LinkingStatus(p) && p != dstar.ProtocolCCS:
		linked = dstar.LinkedStatus(p)
	case p == dstar.ProtocolDCS && s.linkStatus == dstar.LinkingLoopback:
		linked = dstar.LinkedLoopback
	default:
		s.log.Debug("Ignoring link up", logger.String("protocol", p.String()), logger.String("target", callsign),
			logger.String("status", s.linkStatus.String()))
		return
	}

	if callsign != s.linkTarget {
		s.log.Debug("Ignoring stale link up", logger.String("protocol", p.String()), logger.String("target", callsign))
		return
	}

	s.log.Info("Link established", logger.String("protocol", linked.Protocol().String()), logger.String("target", callsign))
	s.setLink(linked, s.linkTarget)
	s.writeLinkedTo(callsign)
}

// LinkFailed is called by a reflector protocol when a link drops or cannot be
// made. It returns true when the failure was absorbed and the protocol
// should keep retrying.
func (s *Session) LinkFailed(p dstar.Protocol, callsign string, recoverable bool) bool {
	// Teardown of the previous module after a module change
	if !recoverable && s.relink && callsign != s.linkTarget && s.ownsLink(p) {
		s.relink = false
		s.log.Info("Relinking", logger.String("from", callsign), logger.String("to", s.linkTarget))
		s.linkOrLookup(s.linkTarget)
		return false
	}

	if s.linkStatus == dstar.LinkNone || s.linkTarget != callsign {
		s.log.Info("Link failed", logger.String("protocol", p.String()), logger.String("target", callsign))
		return false
	}

	if !s.ownsLink(p) {
		return false
	}

	if !recoverable {
		s.log.Warn("Link failed", logger.String("protocol", s.linkStatus.Protocol().String()), logger.String("target", s.linkTarget))
		s.setUnlinked()
		s.writeNotLinked()
		return false
	}

	if s.linkStatus.IsLinking() {
		return true
	}

	s.log.Warn("Link failed, relinking", logger.String("protocol", s.linkStatus.Protocol().String()), logger.String("target", s.linkTarget))
	s.setLink(dstar.LinkingStatus(s.linkStatus.Protocol()), s.linkTarget)
	s.writeLinkingTo(s.linkTarget)
	return true
}

// LinkRefused is called by a reflector protocol when the target rejects the link.
func (s *Session) LinkRefused(p dstar.Protocol, callsign string) {
	if callsign != s.linkTarget || !s.ownsLink(p) {
		return
	}

	s.log.Warn("Link refused", logger.String("protocol", s.linkStatus.Protocol().String()), logger.String("target", callsign))
	s.setUnlinked()
	s.writeIsBusy(callsign)
}

// ownsLink reports whether the current linking or linked state belongs to p.
// Loopback links run over DCS.
func (s *Session) ownsLink(p dstar.Protocol) bool {
	cur := s.linkStatus.Protocol()
	switch cur {
	case dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS:
		return cur == p
	case dstar.ProtocolLoopback:
		return p == dstar.ProtocolDCS || p == dstar.ProtocolLoopback
	default:
		return false
	}
}

// linkTo links to a target named over RF. Reflectors must already be in
// the cache.
func (s *Session) linkTo(callsign string) {
	if _, found := s.reg.cache.FindRepeater(callsign); !found && dstar.IsReflector(callsign) && callsign != s.rptCallsign {
		s.log.Warn("Unknown reflector, ignoring link request", logger.String("target", callsign))
		s.abandonLink()
		return
	}

	s.linkOrLookup(callsign)
}

// linkOrLookup links to callsign using the cache, or starts a directory
// lookup.
func (s *Session) linkOrLookup(callsign string) {
	if dstar.IsBlank(callsign) {
		s.abandonLink()
		return
	}

	if callsign == s.rptCallsign {
		s.log.Warn("Refusing to link to self", logger.String("target", callsign))
		s.abandonLink()
		return
	}

	if entry, found := s.reg.cache.FindRepeater(callsign); found {
		s.linkWith(callsign, entry, true)
		return
	}

	s.lookupLink(callsign)
}

// lookupLink asks the directory where callsign is
func (s *Session) lookupLink(callsign string) {
	if s.reg.directory == nil {
		s.log.Warn("Cannot look up link target, no directory", logger.String("target", callsign))
		s.setUnlinked()
		s.writeNotLinked()
		return
	}

	s.setLink(dstar.LinkPendingLookup, callsign)
	s.reg.directory.FindRepeater(callsign)
	s.reg.recorder.DirectoryQuery("repeater")
	s.linkQuery.Start()
	s.writeLinkingTo(callsign)
}

// abandonLink gives up on a link request. Reflectors have already been told
// to unlink, so any remaining link state is stale.
func (s *Session) abandonLink() {
	if s.linkStatus == dstar.LinkNone {
		s.triggerInfo()
		return
	}
	s.linkQuery.Stop()
	s.setUnlinked()
	s.writeNotLinked()
}

// linkWith issues the link request for a resolved target
func (s *Session) linkWith(target string, entry RepeaterEntry, announce bool) {
	p := entry.Protocol
	switch p {
	case dstar.ProtocolDPlus, dstar.ProtocolDCS, dstar.ProtocolLoopback:
	default:
		p = dstar.ProtocolDExtra
	}

	if !s.reg.enabled(p) {
		s.log.Warn("Protocol required for link is disabled", logger.String("protocol", p.String()), logger.String("target", target))
		s.setUnlinked()
		s.writeNotLinked()
		return
	}

	s.linkGateway = entry.Gateway
	s.setLink(dstar.LinkingStatus(p), target)
	s.reg.reflector(p).Link(s, s.rptCallsign, target, entry.Address)
	if announce {
		s.writeLinkingTo(target)
	}
}

// changeModule moves the current link to another module of the same
// reflector without passing through the unlinked state. It returns false
// when target is not a module change of the current link.
func (s *Session) changeModule(target string) bool {
	if s.linkStatus == dstar.LinkNone || !dstar.SameBase(s.linkTarget, target) {
		return false
	}

	switch s.linkStatus {
	case dstar.LinkingDExtra, dstar.LinkedDExtra, dstar.LinkingDCS, dstar.LinkedDCS,
		dstar.LinkingLoopback, dstar.LinkedLoopback:
		p := s.linkStatus.Protocol()
		s.relink = true
		s.setLink(dstar.LinkingStatus(p), target)
		s.reg.reflector(p).UnlinkExcept(s, target)
		s.writeLinkingTo(target)

	case dstar.LinkingDPlus:
		s.setLink(dstar.LinkingDPlus, target)
		s.reg.reflector(dstar.ProtocolDPlus).Relink(s, target)
		s.writeLinkingTo(target)

	case dstar.LinkedDPlus:
		s.setLink(dstar.LinkedDPlus, target)
		s.reg.reflector(dstar.ProtocolDPlus).Relink(s, target)
		s.writeLinkedTo(target)

	default:
		return false
	}

	s.log.Info("Changing reflector module", logger.String("target", target))
	return true
}

// unlinkAll drops every reflector link. A module change still waiting for
// its old link to go down is abandoned with them.
func (s *Session) unlinkAll() {
	s.relink = false
	s.reg.reflector(dstar.ProtocolDExtra).Unlink(s)
	s.reg.reflector(dstar.ProtocolDPlus).Unlink(s)
	s.reg.reflector(dstar.ProtocolDCS).Unlink(s)
}

func (s *Session) setLink(status dstar.LinkStatus, target string) {
	if status == s.linkStatus && target == s.linkTarget {
		return
	}
	s.linkStatus = status
	s.linkTarget = target
	s.reg.recorder.LinkStateChanged(s.rptCallsign, status, target)
}

func (s *Session) setUnlinked() {
	s.setLink(dstar.LinkNone, "")
	s.linkGateway = ""
	s.relink = false
}

// suspendLinks drops reflector links for a CCS call, remembering the
// reflector so it can be restored afterwards.
func (s *Session) suspendLinks() {
	if s.linkStatus.IsReflector() {
		s.lastReflector = strings.TrimSpace(s.linkTarget)
	}

	s.unlinkAll()
	s.setUnlinked()
	s.reconnectTimer.Stop()
	s.ccs.SetReflector("")
}

// restoreLinks relinks after a CCS call according to the reconnect policy.
// It returns false when nothing was restored.
func (s *Session) restoreLinks() bool {
	last := s.lastReflector
	s.lastReflector = ""

	switch s.reconnect {
	case dstar.ReconnectFixed:
		if last != "" {
			s.linkOrLookup(s.startupTarget)
			return true
		}
	case dstar.ReconnectNever:
		if last != "" {
			s.linkTo(dstar.PadCallsign(last))
			return true
		}
	default:
		s.reconnectTimer.Start()
		if last != "" {
			s.linkTo(dstar.PadCallsign(last))
			return true
		}
	}

	return false
}

// triggerInfo plays the link status now, or after the current transmission
func (s *Session) triggerInfo() {
	if !s.reg.features.Info {
		return
	}

	if s.repeaterID != 0 || s.busyID != 0 {
		s.infoNeeded = true
		return
	}

	s.units.Info.SendStatus()
	s.infoNeeded = false
}

func (s *Session) writeLinkingTo(callsign string) {
	st := Status{Kind: StatusLinking, Link: s.linkStatus, Target: callsign}
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.triggerInfo()
	s.ccs.SetReflector("")
}

func (s *Session) writeLinkedTo(callsign string) {
	st := Status{Kind: StatusLinked, Link: s.linkStatus, Target: callsign}
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.triggerInfo()
	s.ccs.SetReflector(callsign)
}

func (s *Session) writeNotLinked() {
	st := Status{Kind: StatusNotLinked, Link: dstar.LinkNone}
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.triggerInfo()
	s.ccs.SetReflector("")
}

func (s *Session) writeIsBusy(callsign string) {
	temp := Status{Kind: StatusBusy, Link: s.linkStatus, Target: callsign, Temporary: true}
	st := Status{Kind: StatusNotLinked, Link: s.linkStatus}

	s.transport.WriteText(temp)
	s.transport.WriteText(st)
	s.units.Info.SetStatus(st)
	s.units.Info.SetTempStatus(temp)
	s.triggerInfo()
	s.ccs.SetReflector("")
}
