package message

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer a Banner needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. time.AfterFunc satisfies it via SystemScheduler.
type Scheduler func(d time.Duration, f func()) Timer

// SystemScheduler schedules with the runtime timer.
func SystemScheduler(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Banner holds at most one visible message and hides it after a delay.
// Showing a new message stops the pending hide of the previous one, so hide
// timers never stack and a stale timer never hides a newer message.
type Banner struct {
	mu       sync.Mutex
	current  Message
	visible  bool
	seq      uint64
	timer    Timer
	deadline time.Time
	ttl      time.Duration
	schedule Scheduler
	now      func() time.Time
	onHide   func()
}

// NewBanner creates a banner using the runtime timer.
func NewBanner(ttl time.Duration) *Banner {
	return NewBannerWithScheduler(ttl, SystemScheduler)
}

// NewBannerWithScheduler creates a banner with a custom scheduler.
func NewBannerWithScheduler(ttl time.Duration, schedule Scheduler) *Banner {
	return NewBannerWithClock(ttl, schedule, time.Now)
}

// NewBannerWithClock creates a banner with a custom scheduler and clock.
// now must advance in step with schedule for Remaining to be accurate.
// PRE: schedule and now are non-nil
// POST: Returns an empty banner; ttl <= 0 falls back to DefaultHideAfter
func NewBannerWithClock(ttl time.Duration, schedule Scheduler, now func() time.Time) *Banner {
	if ttl <= 0 {
		ttl = DefaultHideAfter
	}
	return &Banner{ttl: ttl, schedule: schedule, now: now}
}

// Show makes m the visible message and (re)arms the hide timer.
// PRE: m is a valid Message
// POST: Current() returns m until the hide fires or another Show supersedes it
func (b *Banner) Show(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.current = m
	b.visible = true
	b.deadline = b.now().Add(b.ttl)
	b.timer = b.schedule(b.ttl, func() { b.expire(seq) })
	return nil
}

// expire hides the message shown by the Show call numbered seq.
// A timer whose Stop lost the race against firing finds a newer seq and does nothing.
func (b *Banner) expire(seq uint64) {
	b.mu.Lock()
	if seq != b.seq || !b.visible {
		b.mu.Unlock()
		return
	}
	b.visible = false
	b.current = Message{}
	b.timer = nil
	onHide := b.onHide
	b.mu.Unlock()

	if onHide != nil {
		onHide()
	}
}

// Hide clears the message immediately and cancels the pending timer.
func (b *Banner) Hide() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.seq++
	b.visible = false
	b.current = Message{}
	b.mu.Unlock()
}

// Current returns the visible message, if any.
// INVARIANT: Banner state is not mutated
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.visible
}

// Remaining returns the visible message and the time left before it hides.
// The duration is never negative.
func (b *Banner) Remaining() (Message, time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.visible {
		return Message{}, 0, false
	}
	return b.current, max(b.deadline.Sub(b.now()), 0), true
}

// TTL returns how long a message stays visible.
func (b *Banner) TTL() time.Duration {
	return b.ttl
}
