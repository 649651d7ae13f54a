package gateway

import (
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// sendHeard reports the current transmission to the directory. The
// destination is the G2 repeater, or the reflector when the traffic goes
// out over a reflector link.
func (s *Session) sendHeard(text string) {
	dir := s.reg.directory
	if dir == nil {
		return
	}

	var destination string
	switch {
	case s.route == dstar.RouteOK:
		destination = s.g2Repeater
	case s.route == dstar.RouteNone:
		switch s.linkStatus {
		case dstar.LinkedDExtra, dstar.LinkedDPlus, dstar.LinkedDCS:
			if dstar.IsReflector(s.linkTarget) {
				destination = s.linkTarget
			}
		}
	}

	dir.SendHeardWithText(s.heardInfo(), destination, text)
}

// sendStats reports the counters of the finished transmission. The
// repeater counts errors in both halves of a frame, so they are halved.
func (s *Session) sendStats() {
	errors := s.errors / 2

	if dir := s.reg.directory; dir != nil {
		dir.SendHeardWithStats(s.heardInfo(), s.frames, s.silence, errors)
	}

	s.reg.journal.LogTransmission(TransmissionRecord{
		Repeater: s.rptCallsign,
		MyCall1:  s.myCall1,
		MyCall2:  s.myCall2,
		YourCall: s.yourCall,
		Route:    s.route,
		Link:     strings.TrimSpace(s.linkTarget),
		Frames:   s.frames,
		Silence:  s.silence,
		Errors:   errors,
		Text:     s.text,
		Duration: s.txTime,
	})
}

// ProcessHeard handles a heard report from an Icom controller. Reports are
// held briefly so a header from the same user can replace them.
func (s *Session) ProcessHeard(user, repeater string) {
	dir := s.reg.directory
	if dir == nil {
		return
	}

	// A second report arrived before the first was sent
	if s.heardTimer.IsRunning() && !s.heardTimer.HasExpired() {
		dir.SendHeard(s.heardUser, s.heardRepeater)
	}

	s.heardUser = user
	s.heardRepeater = repeater
	s.heardTimer.Start()
}

// ProcessPoll handles a controller poll. At most one watchdog kick is sent
// to the directory per poll interval.
func (s *Session) ProcessPoll(text string) {
	if !s.poll.HasExpired() {
		return
	}

	dir := s.reg.directory
	if dir == nil {
		return
	}

	dir.KickWatchdog(s.directoryCallsign(), text)
	s.poll.Start()
}
