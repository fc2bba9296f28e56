package app

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestLevelTimerExpiresExactlyOnce(t *testing.T) {
	sched := newManualScheduler()
	var expired atomic.Int32
	var lastTick atomic.Int32
	timer := NewLevelTimer(sched,
		func(_ uint64, remaining int) { lastTick.Store(int32(remaining)) },
		func(gen uint64) {
			if gen != 7 {
				t.Errorf("expected generation 7, got %d", gen)
			}
			expired.Add(1)
		})

	timer.Start(3, 7)
	sched.Tick(2)
	if got := timer.Remaining(); got != 1 {
		t.Fatalf("expected 1s remaining, got %d", got)
	}
	sched.Tick(5)
	if expired.Load() != 1 {
		t.Fatalf("expected one expiry, got %d", expired.Load())
	}
	if timer.Remaining() != 0 || lastTick.Load() != 0 {
		t.Fatalf("timer went past zero: remaining=%d lastTick=%d", timer.Remaining(), lastTick.Load())
	}
	if sched.Active() != 0 {
		t.Fatalf("expected ticker cancelled after expiry, %d active", sched.Active())
	}
}

func TestLevelTimerStopSuppressesExpiry(t *testing.T) {
	sched := newManualScheduler()
	var expired atomic.Int32
	timer := NewLevelTimer(sched, nil, func(uint64) { expired.Add(1) })

	timer.Start(2, 1)
	sched.Tick(1)
	timer.Stop()
	sched.Tick(5)
	if expired.Load() != 0 {
		t.Fatalf("stopped timer fired %d times", expired.Load())
	}
	if sched.Active() != 0 {
		t.Fatalf("expected no active tickers, got %d", sched.Active())
	}
}

func TestLevelTimerRestartResetsBudgetAndIgnoresStaleTicks(t *testing.T) {
	sched := newManualScheduler()
	var expired []uint64
	timer := NewLevelTimer(sched, nil, func(gen uint64) { expired = append(expired, gen) })

	timer.Start(3, 1)
	sched.Tick(2)
	timer.Start(5, 2)
	if got := timer.Remaining(); got != 5 {
		t.Fatalf("expected full budget after restart, got %d", got)
	}

	// A tick that was already in flight for the previous level is ignored.
	timer.tick(1)
	if got := timer.Remaining(); got != 5 {
		t.Fatalf("stale tick changed remaining to %d", got)
	}

	sched.Tick(5)
	if len(expired) != 1 || expired[0] != 2 {
		t.Fatalf("expected single expiry for generation 2, got %v", expired)
	}
}

func TestTickerSchedulerCancel(t *testing.T) {
	ticks := make(chan struct{}, 16)
	cancel := TickerScheduler{}.Every(5*time.Millisecond, func() { ticks <- struct{}{} })

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatalf("expected at least one tick")
	}
	cancel()
	cancel()
}
