package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// DefaultTickInterval is how often the engine advances the session clocks
const DefaultTickInterval = 10 * time.Millisecond

// ErrEngineStopped is returned by Do once the engine has shut down
var ErrEngineStopped = errors.New("gateway engine stopped")

// Engine runs the registry on a single goroutine. Everything that touches a
// session, including callbacks from reflector protocols and directory
// replies, is posted to the engine and runs on that goroutine in order.
type Engine struct {
	reg  *Registry
	tick time.Duration
	log  *logger.Logger

	mu      sync.Mutex
	queue   []func(*Registry)
	notify  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewEngine creates an engine for reg. A tick of zero uses DefaultTickInterval.
func NewEngine(reg *Registry, tick time.Duration) *Engine {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Engine{
		reg:     reg,
		tick:    tick,
		log:     reg.log.WithComponent("engine"),
		notify:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post queues fn to run on the engine goroutine. It never blocks and events
// run in the order they were posted. Events posted after shutdown are dropped.
func (e *Engine) Post(fn func(r *Registry)) {
	select {
	case <-e.stopped:
		return
	default:
	}

	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Do runs fn on the engine goroutine and waits for it to finish.
func (e *Engine) Do(ctx context.Context, fn func(r *Registry)) error {
	done := make(chan struct{})
	e.Post(func(r *Registry) {
		fn(r)
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-e.stopped:
		// The event may have run just before shutdown
		select {
		case <-done:
			return nil
		default:
			return ErrEngineStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the repeaters and processes events and clock ticks until ctx is
// cancelled, then unlinks every session.
func (e *Engine) Run(ctx context.Context) error {
	defer e.once.Do(func() { close(e.stopped) })

	e.log.Info("Starting gateway engine",
		logger.Int("repeaters", e.reg.Len()),
		logger.Duration("tick", e.tick))
	e.reg.Startup()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			e.drain()
			e.reg.Close()
			e.log.Info("Gateway engine stopped")
			return ctx.Err()

		case <-e.notify:
			e.drain()

		case now := <-ticker.C:
			e.reg.Clock(now.Sub(last))
			last = now
		}
	}
}

func (e *Engine) drain() {
	for {
		e.mu.Lock()
		pending := e.queue
		e.queue = nil
		e.mu.Unlock()

		if len(pending) == 0 {
			return
		}
		for _, fn := range pending {
			fn(e.reg)
		}
	}
}
