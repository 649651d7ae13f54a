package gateway

import (
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// g2Command routes a transmission through the directory. "/GB7XXB" routes
// to a repeater, any other callsign not ending in L or U routes to a user.
// Unknown callsigns are looked up; the header is held until the reply.
func (s *Session) g2Command(callsign, user string, h *dstar.Header) {
	if s.linkStatus.IsCCS() {
		return
	}

	if strings.HasPrefix(callsign, "/") {
		if s.reg.directory == nil {
			s.log.Warn("G2 route with directory disabled", logger.String("user", user))
			s.setRoute(dstar.RouteLocal)
			return
		}

		repeater := dstar.RepeaterFromRoute(callsign)
		if repeater == s.rptCallsign {
			s.log.Warn("Ignoring G2 route to self", logger.String("user", user))
			s.setRoute(dstar.RouteLocal)
			return
		}
		if dstar.IsReflector(repeater) {
			s.log.Warn("Ignoring G2 route to reflector", logger.String("user", user), logger.String("target", repeater))
			s.setRoute(dstar.RouteLocal)
			return
		}

		s.log.Info("G2 route to repeater", logger.String("user", user), logger.String("target", repeater))
		s.g2Repeater = repeater
		s.g2User = dstar.CQCQCQ

		if entry, ok := s.reg.cache.FindRepeater(repeater); ok {
			s.g2Gateway = entry.Gateway
			s.g2Address = entry.Address
			s.routeG2(h)
			return
		}

		s.setRoute(dstar.RouteRepeater)
		s.g2Header = h.Copy()
		s.reg.directory.FindRepeater(repeater)
		s.reg.recorder.DirectoryQuery("repeater")
		s.routeQuery.Start()
		return
	}

	if letter := dstar.ModuleLetter(callsign); letter == 'L' || letter == 'U' {
		return
	}

	if s.reg.directory == nil {
		s.log.Warn("G2 route with directory disabled", logger.String("user", user))
		s.setRoute(dstar.RouteLocal)
		return
	}

	if dstar.IsReflector(callsign) {
		s.log.Warn("Ignoring G2 route to reflector", logger.String("user", user), logger.String("target", callsign))
		s.setRoute(dstar.RouteLocal)
		return
	}

	s.log.Info("G2 route to user", logger.String("user", user), logger.String("target", callsign))

	if entry, ok := s.reg.cache.FindUser(callsign); ok {
		if entry.Repeater == s.rptCallsign {
			s.setRoute(dstar.RouteLocal)
			return
		}

		s.g2User = callsign
		s.g2Address = entry.Address
		s.g2Repeater = entry.Repeater
		s.g2Gateway = entry.Gateway
		s.routeG2(h)
		return
	}

	s.g2User = callsign
	s.setRoute(dstar.RouteUser)
	s.g2Header = h.Copy()
	s.reg.directory.FindUser(callsign)
	s.reg.recorder.DirectoryQuery("user")
	s.routeQuery.Start()
}

// routeG2 sends a header to the resolved destination
func (s *Session) routeG2(h *dstar.Header) {
	out := h.Copy()
	out.SetDestination(s.g2Address, dstar.G2Port)
	out.SetRepeaters(s.g2Gateway, s.g2Repeater)
	s.reg.g2.WriteHeader(out)
	s.setRoute(dstar.RouteOK)
}

// dropG2 keeps the rest of the transmission local
func (s *Session) dropG2() {
	s.setRoute(dstar.RouteLocal)
	s.clearG2()
}

// resolveUser handles a directory reply for a user lookup. An empty address
// means the user was not found.
func (s *Session) resolveUser(user, repeater, gateway, address string) {
	if s.route != dstar.RouteUser || s.g2User != user {
		return
	}

	s.routeQuery.Stop()

	if address == "" {
		s.log.Info("User not found", logger.String("user", user))
		s.dropG2()
		return
	}

	// No point routing to ourselves
	if repeater == s.rptCallsign {
		s.setRoute(dstar.RouteLocal)
		s.g2Header = nil
		return
	}

	s.completeG2(repeater, gateway, address)
}

// resolveRepeater handles a directory reply for a repeater lookup, which may
// belong to a G2 route or to a pending link. An empty address means the
// repeater was not found.
func (s *Session) resolveRepeater(repeater, gateway, address string, p dstar.Protocol) {
	if s.route == dstar.RouteRepeater && s.g2Repeater == repeater {
		s.routeQuery.Stop()

		if address == "" {
			s.log.Info("Repeater not found", logger.String("target", repeater))
			s.dropG2()
		} else {
			s.completeG2(repeater, gateway, address)
		}
	}

	if s.linkStatus == dstar.LinkPendingLookup && s.linkTarget == repeater {
		s.linkQuery.Stop()

		if address == "" {
			s.log.Info("Link target not found", logger.String("target", repeater))
			s.setUnlinked()
			s.writeNotLinked()
			return
		}

		s.linkWith(repeater, RepeaterEntry{
			Repeater: repeater,
			Gateway:  gateway,
			Address:  address,
			Protocol: p,
		}, false)
	}
}

func (s *Session) completeG2(repeater, gateway, address string) {
	s.g2Address = address
	s.g2Repeater = repeater
	s.g2Gateway = gateway

	if s.g2Header != nil {
		s.routeG2(s.g2Header)
	} else {
		s.setRoute(dstar.RouteOK)
	}
	s.g2Header = nil
}
