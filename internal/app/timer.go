package app

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned cancel func is called.
// Cancel must not block and must be safe to call more than once.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// LevelTimer is a whole-second countdown bound to one level at a time.
// Each Start is tagged with a generation so a tick that was already in flight
// when the timer was stopped or restarted is recognised as stale.
type LevelTimer struct {
	sched    Scheduler
	onTick   func(gen uint64, remaining int)
	onExpire func(gen uint64)

	mu        sync.Mutex
	gen       uint64
	remaining int
	running   bool
	cancel    func()
}

func NewLevelTimer(sched Scheduler, onTick func(gen uint64, remaining int), onExpire func(gen uint64)) *LevelTimer {
	if sched == nil {
		sched = TickerScheduler{}
	}
	return &LevelTimer{sched: sched, onTick: onTick, onExpire: onExpire}
}

// Start cancels any running countdown and begins a new one with the full budget.
func (t *LevelTimer) Start(seconds int, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen = gen
	t.remaining = seconds
	t.running = true
	t.cancel = t.sched.Every(time.Second, func() { t.tick(gen) })
}

// Stop cancels the countdown; no further ticks or expiry are delivered.
func (t *LevelTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Remaining returns the seconds left on the active countdown, or 0 when stopped.
func (t *LevelTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	return t.remaining
}

func (t *LevelTimer) stopLocked() {
	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *LevelTimer) tick(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.remaining--
	remaining := t.remaining
	expired := remaining <= 0
	if expired {
		t.remaining = 0
		remaining = 0
		t.stopLocked()
	}
	t.mu.Unlock()

	// Callbacks run without the timer lock held; the session takes its own lock.
	if t.onTick != nil {
		t.onTick(gen, remaining)
	}
	if expired && t.onExpire != nil {
		t.onExpire(gen)
	}
}
