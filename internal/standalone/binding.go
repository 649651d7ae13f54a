// Package standalone provides stand-in collaborators so the gateway runs
// without radio hardware or directory connectivity. Reflector links are
// confirmed immediately and lookups are answered from the local cache.
package standalone

import (
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

// Poster queues work on the gateway engine
type Poster interface {
	Post(fn func(r *gateway.Registry))
}

// Binding is a Poster that can be attached after construction. The
// collaborators are needed to build the registry, and the engine needs the
// registry, so the engine is bound last.
type Binding struct {
	mu sync.RWMutex
	p  Poster
}

// Bind attaches the engine
func (b *Binding) Bind(p Poster) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

// Post forwards fn to the bound engine. Work posted before Bind is dropped.
func (b *Binding) Post(fn func(r *gateway.Registry)) {
	b.mu.RLock()
	p := b.p
	b.mu.RUnlock()
	if p != nil {
		p.Post(fn)
	}
}
