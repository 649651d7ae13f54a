package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/dstar-gateway/internal/testhelpers"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
)

func runEngine(t *testing.T, e *gateway.Engine) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func TestEngineRunAndStop(t *testing.T) {
	h := testhelpers.NewHarness(t)
	s := h.AddRepeater(t, gateway.SessionConfig{})
	e := gateway.NewEngine(h.Registry, time.Millisecond)
	cancel, done := runEngine(t, e)

	var status dstar.LinkStatus
	require.NoError(t, e.Do(context.Background(), func(r *gateway.Registry) {
		status = r.At(0).LinkStatus()
	}))
	assert.Equal(t, dstar.LinkNone, status)

	// Startup has run
	assert.Equal(t, gateway.StatusNotLinked, lastText(t, h, s).Kind)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	assert.Zero(t, h.Registry.Len())
	assert.Equal(t, 1, h.DExtra.UnlinkCount())

	err := e.Do(context.Background(), func(*gateway.Registry) {})
	assert.ErrorIs(t, err, gateway.ErrEngineStopped)
}

func TestEnginePostOrder(t *testing.T) {
	h := testhelpers.NewHarness(t)
	e := gateway.NewEngine(h.Registry, 0)
	runEngine(t, e)

	var got []int
	for i := 0; i < 100; i++ {
		e.Post(func(*gateway.Registry) { got = append(got, i) })
	}
	require.NoError(t, e.Do(context.Background(), func(*gateway.Registry) {}))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEngineAdvancesClock(t *testing.T) {
	h := testhelpers.NewHarness(t)
	h.AddRepeater(t, gateway.SessionConfig{Hardware: dstar.HardwareIcom})
	e := gateway.NewEngine(h.Registry, time.Millisecond)
	runEngine(t, e)

	e.Post(func(r *gateway.Registry) {
		r.At(0).ProcessHeard("M0ABC   ", testhelpers.TestRepeater)
	})

	assert.Eventually(t, func() bool {
		return len(h.Directory.Heard()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngineDoHonoursContext(t *testing.T) {
	h := testhelpers.NewHarness(t)
	e := gateway.NewEngine(h.Registry, 0)

	// Never started, so the event cannot run
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Do(ctx, func(*gateway.Registry) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
