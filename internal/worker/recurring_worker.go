package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock abstracts "now" so due-detection sweeps are deterministic in
// tests; RealClock is wired in production.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// recurringGenerator is the subset of RecurringService the worker depends
// on, kept narrow so tests can supply a stub.
type recurringGenerator interface {
	GenerateDue(now time.Time) (int, error)
}

// RecurringWorker periodically sweeps recurring rules and materializes
// any expense whose occurrence has come due. Shaped after a ticker loop
// with a stop/done handshake, the same pattern used elsewhere in this
// codebase for background sync work, retargeted from month-ahead
// projection generation to due-occurrence generation.
type RecurringWorker struct {
	service  recurringGenerator
	clock    Clock
	logger   zerolog.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewRecurringWorker creates a worker that sweeps every interval.
func NewRecurringWorker(service recurringGenerator, clock Clock, logger zerolog.Logger, interval time.Duration) *RecurringWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &RecurringWorker{
		service:  service,
		clock:    clock,
		logger:   logger.With().Str("component", "recurring_worker").Logger(),
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *RecurringWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("starting recurring worker")

	go w.run(ctx)
}

// Stop gracefully stops the sweep loop, blocking until it has exited.
func (w *RecurringWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("recurring worker stopped")
}

func (w *RecurringWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RecurringWorker) sweep() {
	now := w.clock.Now()
	start := time.Now()

	generated, err := w.service.GenerateDue(now)
	if err != nil {
		w.logger.Error().Err(err).Msg("recurring sweep failed")
		return
	}

	if generated > 0 {
		w.logger.Info().
			Int("generated", generated).
			Dur("elapsed", time.Since(start)).
			Msg("recurring sweep generated due expenses")
	}
}

// IsRunning reports whether the worker's loop is currently active.
func (w *RecurringWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
