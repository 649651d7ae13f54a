package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
)

// Remote drives sessions from outside the engine goroutine, for the web API
// and other control surfaces. Every call is serialized through the engine.
type Remote struct {
	engine *Engine
}

// NewRemote creates a remote control for e
func NewRemote(e *Engine) *Remote {
	return &Remote{engine: e}
}

// Snapshots returns the link state of every session
func (r *Remote) Snapshots(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	if err := r.engine.Do(ctx, func(reg *Registry) { out = reg.Snapshots() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Link sets the reconnect policy and startup target of the session in slot
// index and links to target. An empty target unlinks.
func (r *Remote) Link(ctx context.Context, index int, reconnect dstar.Reconnect, target string) error {
	target = normalizeTarget(target)
	return r.withSession(ctx, index, func(s *Session) { s.Link(reconnect, target) })
}

// Unlink drops the link to target on protocol p for the session in slot index
func (r *Remote) Unlink(ctx context.Context, index int, p dstar.Protocol, target string) error {
	target = normalizeTarget(target)
	return r.withSession(ctx, index, func(s *Session) { s.Unlink(p, target) })
}

func (r *Remote) withSession(ctx context.Context, index int, fn func(s *Session)) error {
	found := false
	err := r.engine.Do(ctx, func(reg *Registry) {
		s := reg.At(index)
		if s == nil {
			return
		}
		found = true
		fn(s)
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("slot %d: %w", index, ErrUnknownRepeater)
	}
	return nil
}

func normalizeTarget(target string) string {
	target = strings.ToUpper(strings.TrimRight(target, " "))
	if target == "" {
		return ""
	}
	return dstar.PadCallsign(target)
}
