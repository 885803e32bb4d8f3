package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

func TestTicker_RunOnceRejectsOverlap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	ticker := NewTicker(time.Hour, func(ctx context.Context, now time.Time) (models.TickReport, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
		}
		return models.TickReport{StartedAt: now}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := ticker.RunOnce(context.Background())
		done <- err
	}()
	<-entered

	if _, err := ticker.RunOnce(context.Background()); !errors.Is(err, ErrTickInProgress) {
		t.Fatalf("expected ErrTickInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first tick: %v", err)
	}

	if _, err := ticker.RunOnce(context.Background()); err != nil {
		t.Fatalf("tick after completion: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 ticks, got %d", got)
	}
}

func TestTicker_PassesUTCNow(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	fixed := time.Date(2025, 6, 1, 14, 0, 0, 0, loc)

	var seen time.Time
	ticker := NewTicker(time.Hour, func(ctx context.Context, now time.Time) (models.TickReport, error) {
		seen = now
		return models.TickReport{}, nil
	})
	ticker.now = func() time.Time { return fixed }

	if _, err := ticker.RunOnce(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if seen.Location() != time.UTC || !seen.Equal(fixed) {
		t.Fatalf("expected %v in UTC, got %v", fixed, seen)
	}
}

func TestTicker_StopDrainsRunningTick(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished int32

	ticker := NewTicker(time.Hour, func(ctx context.Context, now time.Time) (models.TickReport, error) {
		close(entered)
		<-release
		atomic.StoreInt32(&finished, 1)
		return models.TickReport{}, nil
	})
	if err := ticker.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	go ticker.RunOnce(context.Background())
	<-entered

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := ticker.Stop(shortCtx); err == nil {
		t.Fatalf("expected Stop to time out while the tick is running")
	}

	close(release)
	if err := ticker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatalf("Stop returned before the running tick finished")
	}

	if _, err := ticker.RunOnce(context.Background()); !errors.Is(err, ErrTickerStopped) {
		t.Fatalf("expected ErrTickerStopped, got %v", err)
	}
}

func TestTicker_StartRejectsBadInterval(t *testing.T) {
	ticker := NewTicker(0, func(ctx context.Context, now time.Time) (models.TickReport, error) {
		return models.TickReport{}, nil
	})
	if err := ticker.Start(); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
