package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator records every sweep invocation and the now it was given.
type stubGenerator struct {
	mu        sync.Mutex
	calls     []time.Time
	generated int
	err       error
}

func (g *stubGenerator) GenerateDue(now time.Time) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, now)
	return g.generated, g.err
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *stubGenerator) lastCall() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

// fixedClock always reports the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func setupRecurringWorker(gen *stubGenerator, clock Clock) *RecurringWorker {
	return NewRecurringWorker(gen, clock, zerolog.Nop(), 50*time.Millisecond)
}

func TestRecurringWorker_New(t *testing.T) {
	worker := setupRecurringWorker(&stubGenerator{}, nil)

	assert.NotNil(t, worker)
	assert.Equal(t, 50*time.Millisecond, worker.interval)
	assert.False(t, worker.IsRunning())
}

func TestRecurringWorker_DefaultsForInvalidInterval(t *testing.T) {
	worker := NewRecurringWorker(&stubGenerator{}, nil, zerolog.Nop(), 0)

	assert.Equal(t, time.Hour, worker.interval)
}

func TestRecurringWorker_StartStop(t *testing.T) {
	gen := &stubGenerator{}
	worker := setupRecurringWorker(gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())

	// The worker sweeps once on start before the first tick.
	require.GreaterOrEqual(t, gen.callCount(), 1)
}

func TestRecurringWorker_StartTwice(t *testing.T) {
	worker := setupRecurringWorker(&stubGenerator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	worker.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestRecurringWorker_StopWithoutStart(t *testing.T) {
	worker := setupRecurringWorker(&stubGenerator{}, nil)

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestRecurringWorker_SweepUsesInjectedClock(t *testing.T) {
	frozen := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	gen := &stubGenerator{generated: 2}
	worker := setupRecurringWorker(gen, fixedClock{now: frozen})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	worker.Stop()

	require.GreaterOrEqual(t, gen.callCount(), 1)
	assert.Equal(t, frozen, gen.lastCall())
}

func TestRecurringWorker_ContextCancellation(t *testing.T) {
	worker := setupRecurringWorker(&stubGenerator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	worker.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	cancel()
	time.Sleep(100 * time.Millisecond)

	assert.False(t, worker.IsRunning())
}

func TestRecurringWorker_SweepErrorDoesNotStopLoop(t *testing.T) {
	gen := &stubGenerator{err: assert.AnError}
	worker := setupRecurringWorker(gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	time.Sleep(120 * time.Millisecond)

	assert.True(t, worker.IsRunning())
	// At least the initial sweep plus one tick despite the error.
	assert.GreaterOrEqual(t, gen.callCount(), 2)

	worker.Stop()
}
