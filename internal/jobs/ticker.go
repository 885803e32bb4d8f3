package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/robfig/cron"
)

var (
	ErrTickInProgress = errors.New("a dispatch tick is already running")
	ErrTickerStopped  = errors.New("ticker stopped")
)

// TickFunc runs one dispatch tick.
type TickFunc func(ctx context.Context, now time.Time) (models.TickReport, error)

// Ticker drives a TickFunc on a fixed interval. Ticks never overlap: a tick
// that fires while the previous one is still running is skipped.
type Ticker struct {
	tick     TickFunc
	interval time.Duration
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

func NewTicker(interval time.Duration, tick TickFunc) *Ticker {
	return &Ticker{
		tick:     tick,
		interval: interval,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules the tick on the cron.
func (t *Ticker) Start() error {
	if t.interval <= 0 {
		return fmt.Errorf("invalid tick interval %s", t.interval)
	}
	spec := fmt.Sprintf("@every %s", t.interval)
	if err := t.cron.AddFunc(spec, t.fire); err != nil {
		return fmt.Errorf("schedule dispatch tick %q: %w", spec, err)
	}
	t.cron.Start()
	slog.Info("dispatch ticker started", "interval", t.interval)
	return nil
}

func (t *Ticker) fire() {
	_, err := t.RunOnce(context.Background())
	if err != nil && !errors.Is(err, ErrTickInProgress) && !errors.Is(err, ErrTickerStopped) {
		slog.Error("dispatch tick failed", "error", err)
	}
}

// RunOnce runs a tick now unless one is in progress or the ticker is stopped.
func (t *Ticker) RunOnce(ctx context.Context) (models.TickReport, error) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return models.TickReport{}, ErrTickerStopped
	}
	if t.running {
		t.mu.Unlock()
		slog.Debug("skipping tick, previous tick still running")
		return models.TickReport{}, ErrTickInProgress
	}
	t.running = true
	t.wg.Add(1)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		t.wg.Done()
	}()

	return t.tick(ctx, t.now().UTC())
}

// Stop prevents new ticks and waits for a running tick to drain, or for ctx
// to be done.
func (t *Ticker) Stop(ctx context.Context) error {
	t.cron.Stop()

	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("dispatch ticker drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for dispatch tick to drain: %w", ctx.Err())
	}
}
