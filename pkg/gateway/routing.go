package gateway

import (
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Reserved your-call commands
const (
	commandEcho    = "       E"
	commandInfo    = "       I"
	commandMessage = "       M"
	commandWeather = "       W"
	commandVersion = "       V"
	commandLink    = "       L"
	commandCancel  = "CA      "
)

// ProcessHeader handles a radio header received over RF from the repeater.
func (s *Session) ProcessHeader(h *dstar.Header) {
	// Duplicate deliveries of the active header
	if h.ID == s.repeaterID {
		return
	}

	s.myCall1 = h.MyCall1
	s.myCall2 = h.MyCall2
	s.yourCall = h.YourCall
	s.rptCall1 = h.RptCall1
	s.rptCall2 = h.RptCall2
	s.flag1 = h.Flag1
	s.flag2 = h.Flag2
	s.flag3 = h.Flag3

	s.updateBands(h)

	if h.IsBusy() {
		s.log.Info("Received a busy message from repeater", logger.String("rpt1", h.RptCall1))
		return
	}

	if s.heardUser != "" && s.myCall1 != s.heardUser && s.reg.directory != nil {
		s.reg.directory.SendHeard(s.heardUser, s.heardRepeater)
	}

	s.ccs.WriteHeard(h)
	s.ccs.WriteHeader(h)

	s.heardTimer.Stop()

	s.frames = 0
	s.silence = 0
	s.errors = 0
	s.txTime = 0

	s.reconnectTimer.Start()

	s.sendHeaderToIncoming(h)

	s.collector.Reset()
	s.text = ""

	s.reg.journal.LogHeader("Repeater", h)
	s.reg.recorder.HeaderReceived(s.rptCallsign)

	s.dtmf.Reset()
	s.cancelUnits()

	s.repeaterID = h.ID
	s.busyID = 0
	s.watchdog.Start()

	s.xband = -1
	s.group = ""

	if s.route == dstar.RouteUser || s.route == dstar.RouteRepeater {
		s.routeQuery.Stop()
	}
	s.clearG2()
	s.route = dstar.RouteNone

	s.restricted = s.reg.isRestricted(s.myCall1)

	if s.rptCall2 == s.rptCallsign || dstar.IsBlank(s.rptCall2) {
		return
	}

	// RPT2 naming something other than the gateway is a cross-band route
	if s.rptCall2 != s.gwyCallsign && s.rptCall2 != s.reg.gateway {
		partner := s.reg.FindByCallsign(s.rptCall2, dstar.ModeDV)
		if partner == nil {
			s.log.Info("Invalid cross-band route", logger.String("user", s.myCall1), logger.String("to", s.rptCall2))
			s.setRoute(dstar.RouteLocal)
			return
		}

		s.log.Info("Cross-band routing", logger.String("user", s.myCall1), logger.String("to", s.rptCall2))
		s.xband = partner.index
		s.setRoute(dstar.RouteXBand)
		partner.ProcessNetworkHeader(h, dstar.DirectionIncoming, dstar.SourceXBand)
		return
	}

	if group, ok := s.reg.groups.Find(h); ok && !s.restricted {
		s.log.Info("StarNet routing", logger.String("user", s.myCall1), logger.String("group", s.yourCall))
		s.group = group
		s.reg.groups.WriteHeader(group, h.Copy())
		s.setRoute(dstar.RouteStarNet)
		return
	}

	if dstar.IsCQ(s.yourCall) {
		s.sendHeaderToOutgoing(h)
		return
	}

	features := s.reg.features
	switch {
	case features.Echo && s.yourCall == commandEcho:
		s.setRoute(dstar.RouteEcho)
		s.units.Echo.WriteHeader(h.Copy())
		return
	case features.Info && s.yourCall == commandInfo:
		s.setRoute(dstar.RouteLocal)
		s.infoNeeded = true
		return
	case features.Info && s.yourCall == commandMessage:
		s.setRoute(dstar.RouteLocal)
		s.msgNeeded = true
		return
	case features.Info && s.yourCall == commandWeather:
		s.setRoute(dstar.RouteLocal)
		s.wxNeeded = true
		return
	case features.Info && s.yourCall == commandVersion:
		s.setRoute(dstar.RouteVersion)
		s.sendHeaderToOutgoing(h)
		return
	}

	if s.restricted {
		s.sendHeaderToOutgoing(h)
		return
	}

	if isCCSCommand(s.yourCall) {
		s.ccsCommand(s.yourCall, s.myCall1, "UR Call")
		s.sendHeaderToOutgoing(h)
		return
	}

	s.g2Command(s.yourCall, s.myCall1, h)
	if s.route == dstar.RouteNone {
		s.reflectorCommand(s.yourCall, s.myCall1, "UR Call")
		s.sendHeaderToOutgoing(h)
	}
}

// ProcessFrame handles a voice frame of the active RF transmission.
func (s *Session) ProcessFrame(f *dstar.Frame) {
	if s.repeaterID == 0 || f.ID != s.repeaterID {
		return
	}

	s.reconnectTimer.Start()
	s.watchdog.Start()

	s.frames++
	s.errors += f.Errors

	silent := f.IsSilence()
	if silent {
		s.silence++
	}
	s.reg.recorder.FrameReceived(s.rptCallsign, silent, f.Errors)

	if s.reg.features.DTMF && s.route != dstar.RouteXBand {
		// Tones are blanked before the frame goes anywhere
		if s.dtmf.Decode(f.Data[:], f.End) {
			f.Silence()
		}
		if s.dtmf.HasCommand() {
			s.dtmfCommand(s.dtmf.Translate(), "DTMF", false)
		}
	}

	s.sendFrameToIncoming(f)
	s.ccs.WriteFrame(f)

	if s.text == "" && !f.End {
		s.collector.Write(f)
		if s.collector.HasData() {
			s.text = s.collector.Data()
			s.sendHeard(s.text)
		}
	}
	f.Text = s.text

	if f.End {
		if s.text == "" {
			s.sendHeard("")
		}
		s.watchdog.Stop()
		s.sendStats()
	}

	switch s.route {
	case dstar.RouteOK:
		out := f.Copy()
		out.SetDestination(s.g2Address, dstar.G2Port)
		s.reg.g2.WriteFrame(out)

	case dstar.RouteUser, dstar.RouteRepeater:
		// The transmission ended before the callsign was resolved
		if f.End {
			s.routeQuery.Stop()
			s.g2Header = nil
		}

	case dstar.RouteNone:
		s.sendFrameToOutgoing(f)

	case dstar.RouteXBand:
		if partner := s.xbandPartner(); partner != nil {
			partner.ProcessNetworkFrame(f, dstar.DirectionIncoming, dstar.SourceXBand)
		}

	case dstar.RouteStarNet:
		if !s.reg.groups.WriteFrame(s.group, f.Copy()) {
			s.log.Debug("StarNet group has gone", logger.String("group", s.group))
		}

	case dstar.RouteEcho:
		s.units.Echo.WriteFrame(f.Copy())

	case dstar.RouteVersion:
		s.sendFrameToOutgoing(f)
		if f.End {
			s.units.Version.SendVersion()
		}
	}

	if f.End {
		s.endTransmission()
		s.flushAnnouncements()
	}
}

// ProcessBusyHeader handles a header the repeater reports while it is
// relaying network traffic. It can only carry commands. An RF transmission
// still open is ended here rather than waiting for the watchdog.
func (s *Session) ProcessBusyHeader(h *dstar.Header) {
	if h.ID == s.busyID {
		return
	}

	s.updateBands(h)

	if h.IsBusy() {
		s.log.Info("Received a busy message from repeater", logger.String("rpt1", h.RptCall1))
		return
	}

	if h.RptCall2 != s.gwyCallsign && h.RptCall2 != s.reg.gateway {
		return
	}

	// The RF transmission lost its end marker
	if s.repeaterID != 0 {
		s.log.Info("Busy header during RF transmission, ending it", logger.String("user", h.MyCall1))
		s.abortTransmission()
	}

	s.myCall1 = h.MyCall1
	s.yourCall = h.YourCall
	s.rptCall1 = h.RptCall1
	s.rptCall2 = h.RptCall2

	s.dtmf.Reset()

	s.busyID = h.ID
	s.watchdog.Start()

	s.restricted = s.reg.isRestricted(s.myCall1)
	if s.restricted {
		return
	}

	if dstar.IsCQ(s.yourCall) || s.yourCall == commandEcho || s.yourCall == commandInfo {
		return
	}

	if isCCSCommand(s.yourCall) {
		s.ccsCommand(s.yourCall, s.myCall1, "background UR Call")
	} else {
		s.reflectorCommand(s.yourCall, s.myCall1, "background UR Call")
	}
}

// ProcessBusyFrame handles a voice frame of a busy-channel transmission.
func (s *Session) ProcessBusyFrame(f *dstar.Frame) {
	if s.busyID == 0 || f.ID != s.busyID {
		return
	}

	s.watchdog.Start()

	if s.reg.features.DTMF {
		s.dtmf.Decode(f.Data[:], f.End)
		if s.dtmf.HasCommand() {
			s.dtmfCommand(s.dtmf.Translate(), "background DTMF", true)
		}
	}

	if f.End {
		s.endBusy()
		s.watchdog.Stop()
	}
}

// ProcessNetworkHeader sends a header from the network to the repeater. It
// returns false while the repeater is transmitting.
func (s *Session) ProcessNetworkHeader(h *dstar.Header, _ dstar.Direction, source dstar.AudioSource) bool {
	if s.repeaterID != 0 {
		return false
	}

	out := h.Copy()
	if s.hwType == dstar.HardwareIcom {
		out.ID += uint16(s.index)
	}

	// Duplicate headers only go to homebrew repeaters
	if source != dstar.SourceDup || s.hwType == dstar.HardwareHomebrew {
		out.SetBands(s.band1, s.band2, s.band3)
		out.SetDestination(s.address, s.port)
		out.SetRepeaters(s.gwyCallsign, s.rptCallsign)
		s.transport.WriteHeader(out.Copy())
	}

	if source == dstar.SourceDup {
		return true
	}

	s.sendHeaderToIncoming(out)

	if source.IsReflector() {
		s.ccs.WriteHeader(out)
	}

	if source.IsTerminal() {
		return true
	}

	s.collector.Reset()
	s.text = ""

	s.sendHeaderToOutgoing(out)
	return true
}

// ProcessNetworkFrame sends a voice frame from the network to the repeater.
// It returns false while the repeater is transmitting.
func (s *Session) ProcessNetworkFrame(f *dstar.Frame, _ dstar.Direction, source dstar.AudioSource) bool {
	if s.repeaterID != 0 {
		return false
	}

	out := f.Copy()
	if s.hwType == dstar.HardwareIcom {
		out.ID += uint16(s.index)
	}
	out.SetBands(s.band1, s.band2, s.band3)
	out.SetDestination(s.address, s.port)
	s.transport.WriteFrame(out.Copy())

	s.sendFrameToIncoming(out)

	if source.IsReflector() {
		s.ccs.WriteFrame(out)
	}

	if source.IsTerminal() {
		return true
	}

	// Slow data text is passed on to DCS
	if s.text == "" && !out.End {
		s.collector.Write(out)
		if s.collector.HasData() {
			s.text = s.collector.Data()
		}
	}
	out.Text = s.text

	s.sendFrameToOutgoing(out)
	return true
}

// dtmfCommand dispatches a keyed command. Only unrestricted users calling
// CQ may issue them.
func (s *Session) dtmfCommand(command, via string, busy bool) {
	if s.restricted || !dstar.IsCQ(s.yourCall) || command == "" {
		return
	}

	switch {
	case isCCSCommand(command):
		s.ccsCommand(command, s.myCall1, via)
	case command == commandInfo:
		if !busy {
			s.infoNeeded = true
		}
	default:
		s.reflectorCommand(command, s.myCall1, via)
	}
}

func (s *Session) updateBands(h *dstar.Header) {
	if s.hwType != dstar.HardwareIcom {
		return
	}
	if s.band1 == h.Band1 && s.band2 == h.Band2 && s.band3 == h.Band3 {
		return
	}

	s.band1, s.band2, s.band3 = h.Band1, h.Band2, h.Band3
	s.log.Info("Repeater registered with bands",
		logger.Uint("band1", uint(s.band1)),
		logger.Uint("band2", uint(s.band2)),
		logger.Uint("band3", uint(s.band3)))
}

// endBusy finishes a busy-channel transmission
func (s *Session) endBusy() {
	s.flushAnnouncements()
	if s.route == dstar.RouteVersion {
		s.units.Version.SendVersion()
	}
	s.route = dstar.RouteNone
	s.busyID = 0
}

// sendHeaderToOutgoing fans a header out to the links this repeater made.
func (s *Session) sendHeaderToOutgoing(h *dstar.Header) {
	tmp := h.Copy()
	tmp.SetCQCQCQ()
	tmp.SetFlags(0, 0, 0)

	// D-Plus rewrites RPT1 and RPT2 itself
	s.reg.reflector(dstar.ProtocolDPlus).WriteHeader(s, tmp.Copy(), dstar.DirectionOutgoing)

	dextra := tmp.Copy()
	dextra.SetRepeaters(s.linkGateway, s.linkTarget)
	s.reg.reflector(dstar.ProtocolDExtra).WriteHeader(s, dextra, dstar.DirectionOutgoing)

	dcs := tmp.Copy()
	dcs.SetRepeaters(s.rptCallsign, s.linkTarget)
	s.reg.reflector(dstar.ProtocolDCS).WriteHeader(s, dcs, dstar.DirectionOutgoing)
}

func (s *Session) sendFrameToOutgoing(f *dstar.Frame) {
	s.reg.reflector(dstar.ProtocolDExtra).WriteFrame(s, f.Copy(), dstar.DirectionOutgoing)
	s.reg.reflector(dstar.ProtocolDPlus).WriteFrame(s, f.Copy(), dstar.DirectionOutgoing)
	s.reg.reflector(dstar.ProtocolDCS).WriteFrame(s, f.Copy(), dstar.DirectionOutgoing)
}

// sendHeaderToIncoming mirrors a header to the links other systems made to
// this repeater.
func (s *Session) sendHeaderToIncoming(h *dstar.Header) {
	tmp := h.Copy()
	tmp.SetCQCQCQ()
	tmp.SetFlags(0, 0, 0)

	dplus := tmp.Copy()
	dplus.SetRepeaters(s.rptCallsign, s.reg.gateway)
	s.reg.reflector(dstar.ProtocolDPlus).WriteHeader(s, dplus, dstar.DirectionIncoming)

	// DExtra and DCS have RPT1 and RPT2 swapped
	dextra := tmp.Copy()
	dextra.SetRepeaters(s.gwyCallsign, s.rptCallsign)
	s.reg.reflector(dstar.ProtocolDExtra).WriteHeader(s, dextra, dstar.DirectionIncoming)

	dcs := tmp.Copy()
	dcs.SetRepeaters(s.gwyCallsign, s.rptCallsign)
	s.reg.reflector(dstar.ProtocolDCS).WriteHeader(s, dcs, dstar.DirectionIncoming)
}

func (s *Session) sendFrameToIncoming(f *dstar.Frame) {
	s.reg.reflector(dstar.ProtocolDExtra).WriteFrame(s, f.Copy(), dstar.DirectionIncoming)
	s.reg.reflector(dstar.ProtocolDPlus).WriteFrame(s, f.Copy(), dstar.DirectionIncoming)
	s.reg.reflector(dstar.ProtocolDCS).WriteFrame(s, f.Copy(), dstar.DirectionIncoming)
}
