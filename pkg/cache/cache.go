// Package cache keeps the locally known repeater, reflector and user
// locations that let the gateway route without asking the directory.
package cache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Cache is an in-memory directory cache with optional write-through to the
// database. It is safe for concurrent use.
type Cache struct {
	mu sync.RWMutex
	// hosts is keyed by the trimmed base callsign, e.g. "XRF001"
	hosts map[string]gateway.RepeaterEntry
	// repeaters is keyed by the full repeater callsign, e.g. "GB7XX  B"
	repeaters map[string]gateway.RepeaterEntry
	users     map[string]gateway.UserEntry

	hostRepo  *database.HostRepository
	routeRepo *database.UserRouteRepository
	log       *logger.Logger
}

// New creates an empty cache. A nil db keeps everything in memory.
func New(db *database.DB, log *logger.Logger) *Cache {
	c := &Cache{
		hosts:     make(map[string]gateway.RepeaterEntry),
		repeaters: make(map[string]gateway.RepeaterEntry),
		users:     make(map[string]gateway.UserEntry),
		log:       log.WithComponent("cache"),
	}
	if db != nil {
		c.hostRepo = database.NewHostRepository(db.GetDB())
		c.routeRepo = database.NewUserRouteRepository(db.GetDB())
	}
	return c
}

// Load fills the cache from the database
func (c *Cache) Load() error {
	if c.hostRepo == nil {
		return nil
	}

	hosts, err := c.hostRepo.All()
	if err != nil {
		return fmt.Errorf("failed to load hosts: %w", err)
	}
	routes, err := c.routeRepo.All()
	if err != nil {
		return fmt.Errorf("failed to load user routes: %w", err)
	}

	c.mu.Lock()
	for _, h := range hosts {
		p, err := dstar.ParseProtocol(h.Protocol)
		if err != nil {
			c.log.Warn("Skipping host with unknown protocol", logger.String("callsign", h.Name()), logger.String("protocol", h.Protocol))
			continue
		}
		c.hosts[h.Name()] = gateway.RepeaterEntry{Repeater: h.Callsign, Gateway: h.Gateway, Address: h.Address, Protocol: p}
	}
	for _, r := range routes {
		c.users[r.Callsign] = gateway.UserEntry{User: r.Callsign, Repeater: r.Repeater, Gateway: r.Gateway, Address: r.Address}
	}
	c.mu.Unlock()

	c.log.Info("Cache loaded", logger.Int("hosts", len(hosts)), logger.Int("users", len(routes)))
	return nil
}

// FindRepeater returns the location of a repeater or reflector module. A
// repeater entry matches exactly; otherwise the host of the base callsign
// is used, so "XRF001 A" resolves through the XRF001 host.
func (c *Cache) FindRepeater(callsign string) (gateway.RepeaterEntry, bool) {
	callsign = dstar.PadCallsign(callsign)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.repeaters[callsign]; ok {
		return e, true
	}

	h, ok := c.hosts[hostKey(callsign)]
	if !ok {
		return gateway.RepeaterEntry{}, false
	}
	h.Repeater = callsign
	if h.Gateway == "" {
		h.Gateway = dstar.GatewayCallsign(dstar.BaseCallsign(callsign))
	}
	return h, true
}

// FindUser returns the last known location of a user
func (c *Cache) FindUser(callsign string) (gateway.UserEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.users[dstar.PadCallsign(callsign)]
	return e, ok
}

// AddHost stores a reflector or gateway host. Locked hosts survive
// downloads.
func (c *Cache) AddHost(e gateway.RepeaterEntry, locked bool) error {
	key := hostKey(e.Repeater)
	if key == "" {
		return fmt.Errorf("host without callsign")
	}
	e.Repeater = dstar.PadCallsign(key)

	c.mu.Lock()
	c.hosts[key] = e
	c.mu.Unlock()

	if c.hostRepo == nil {
		return nil
	}
	return c.hostRepo.Upsert(&database.HostEntry{
		Callsign: e.Repeater,
		Gateway:  e.Gateway,
		Address:  e.Address,
		Protocol: e.Protocol.String(),
		Locked:   locked,
	})
}

// ReplaceHosts swaps every downloaded host of protocol p for entries
func (c *Cache) ReplaceHosts(p dstar.Protocol, entries []gateway.RepeaterEntry) error {
	rows := make([]database.HostEntry, 0, len(entries))

	c.mu.Lock()
	for key, h := range c.hosts {
		if h.Protocol == p {
			delete(c.hosts, key)
		}
	}
	for _, e := range entries {
		key := hostKey(e.Repeater)
		if key == "" {
			continue
		}
		e.Repeater = dstar.PadCallsign(key)
		e.Protocol = p
		c.hosts[key] = e
		rows = append(rows, database.HostEntry{Callsign: e.Repeater, Gateway: e.Gateway, Address: e.Address, Protocol: p.String()})
	}
	c.mu.Unlock()

	if c.hostRepo == nil {
		return nil
	}
	if _, err := c.hostRepo.DeleteUnlocked(p.String()); err != nil {
		return fmt.Errorf("failed to clear %s hosts: %w", p, err)
	}
	if err := c.hostRepo.UpsertBatch(rows, 500); err != nil {
		return fmt.Errorf("failed to store %s hosts: %w", p, err)
	}

	// Locked entries win over the download
	return c.reloadLocked(p)
}

func (c *Cache) reloadLocked(p dstar.Protocol) error {
	hosts, err := c.hostRepo.All()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hosts {
		if h.Locked && h.Protocol == p.String() {
			c.hosts[h.Name()] = gateway.RepeaterEntry{Repeater: h.Callsign, Gateway: h.Gateway, Address: h.Address, Protocol: p}
		}
	}
	return nil
}

// AddRepeater stores a repeater location learned from the directory
func (c *Cache) AddRepeater(e gateway.RepeaterEntry) {
	e.Repeater = dstar.PadCallsign(e.Repeater)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeaters[e.Repeater] = e
}

// AddUser stores a user location learned from the directory
func (c *Cache) AddUser(e gateway.UserEntry) error {
	e.User = dstar.PadCallsign(e.User)

	c.mu.Lock()
	c.users[e.User] = e
	c.mu.Unlock()

	if c.routeRepo == nil {
		return nil
	}
	return c.routeRepo.Upsert(&database.UserRoute{
		Callsign: e.User,
		Repeater: e.Repeater,
		Gateway:  e.Gateway,
		Address:  e.Address,
	})
}

// Counts returns the number of hosts, repeaters and users held
func (c *Cache) Counts() (hosts, repeaters, users int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hosts), len(c.repeaters), len(c.users)
}

func hostKey(callsign string) string {
	return strings.TrimSpace(dstar.BaseCallsign(dstar.PadCallsign(callsign)))
}
