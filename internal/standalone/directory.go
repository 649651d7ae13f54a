package standalone

import (
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// UserStore is the cache the directory answers from and learns into
type UserStore interface {
	gateway.Cache
	AddUser(e gateway.UserEntry) error
}

// Directory is a local directory service. Users heard on this gateway are
// remembered, and lookups are answered from the store. Replies are posted
// back to the engine like a network reply would be.
type Directory struct {
	store   UserStore
	poster  Poster
	gateway string
	address string
	log     *logger.Logger
}

var _ gateway.Directory = (*Directory)(nil)

// NewDirectory creates a directory for the gateway callsign gw reachable at
// address
func NewDirectory(store UserStore, poster Poster, gw, address string, log *logger.Logger) *Directory {
	return &Directory{
		store:   store,
		poster:  poster,
		gateway: gw,
		address: address,
		log:     log.WithComponent("directory"),
	}
}

func (d *Directory) FindUser(callsign string) {
	e, ok := d.store.FindUser(callsign)
	if !ok {
		d.log.Debug("User not in directory", logger.String("user", callsign))
	}
	d.poster.Post(func(r *gateway.Registry) {
		if ok {
			r.ResolveUser(callsign, e.Repeater, e.Gateway, e.Address)
		} else {
			r.ResolveUser(callsign, "", "", "")
		}
	})
}

func (d *Directory) FindRepeater(callsign string) {
	e, ok := d.store.FindRepeater(callsign)
	if !ok {
		d.log.Debug("Repeater not in directory", logger.String("repeater", callsign))
	}
	d.poster.Post(func(r *gateway.Registry) {
		if ok {
			r.ResolveRepeater(callsign, e.Gateway, e.Address, e.Protocol)
		} else {
			r.ResolveRepeater(callsign, "", "", dstar.ProtocolNone)
		}
	})
}

// SendHeard records that user was last heard on repeater
func (d *Directory) SendHeard(user, repeater string) {
	if dstar.IsBlank(user) || dstar.IsBlank(repeater) {
		return
	}
	err := d.store.AddUser(gateway.UserEntry{
		User:     user,
		Repeater: repeater,
		Gateway:  d.gateway,
		Address:  d.address,
	})
	if err != nil {
		d.log.Warn("Failed to store heard user", logger.String("user", user), logger.Error(err))
		return
	}
	d.log.Debug("Heard", logger.String("user", user), logger.String("repeater", repeater))
}

func (d *Directory) SendHeardWithText(h gateway.HeardInfo, destination, text string) {
	d.SendHeard(h.MyCall1, h.RptCall1)
	d.log.Info("Heard",
		logger.String("user", h.MyCall1),
		logger.String("repeater", h.RptCall1),
		logger.String("destination", destination),
		logger.String("text", strings.TrimSpace(text)))
}

func (d *Directory) SendHeardWithStats(h gateway.HeardInfo, frames, silence, errors uint) {
	d.log.Info("Transmission ended",
		logger.String("user", h.MyCall1),
		logger.String("repeater", h.RptCall1),
		logger.Uint("frames", frames),
		logger.Uint("silence", silence),
		logger.Uint("errors", errors))
}

func (d *Directory) KickWatchdog(callsign, text string) {
	d.log.Debug("Watchdog", logger.String("repeater", callsign), logger.String("text", text))
}

func (d *Directory) ReportQRG(callsign string, frequency, offset, rangeMeters, agl float64) {
	d.log.Info("Repeater QRG",
		logger.String("repeater", callsign),
		logger.Any("frequency", frequency),
		logger.Any("offset", offset),
		logger.Any("range", rangeMeters),
		logger.Any("agl", agl))
}

func (d *Directory) ReportQTH(callsign string, latitude, longitude float64, desc1, desc2, url string) {
	d.log.Info("Repeater QTH",
		logger.String("repeater", callsign),
		logger.Any("latitude", latitude),
		logger.Any("longitude", longitude),
		logger.String("description", strings.TrimSpace(desc1+" "+desc2)),
		logger.String("url", url))
}
