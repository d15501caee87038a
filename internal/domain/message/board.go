package message

import (
	"sync"
	"time"
)

// Board keeps one Banner per client so feedback survives a redirect.
// Banners are dropped once their message hides.
type Board struct {
	mu       sync.Mutex
	banners  map[string]*Banner
	ttl      time.Duration
	schedule Scheduler
	now      func() time.Time
}

// NewBoard creates a board whose banners hide after ttl.
func NewBoard(ttl time.Duration) *Board {
	return NewBoardWithScheduler(ttl, SystemScheduler)
}

// NewBoardWithScheduler creates a board with a custom scheduler.
func NewBoardWithScheduler(ttl time.Duration, schedule Scheduler) *Board {
	return NewBoardWithClock(ttl, schedule, time.Now)
}

// NewBoardWithClock creates a board with a custom scheduler and clock.
func NewBoardWithClock(ttl time.Duration, schedule Scheduler, now func() time.Time) *Board {
	if ttl <= 0 {
		ttl = DefaultHideAfter
	}
	return &Board{
		banners:  make(map[string]*Banner),
		ttl:      ttl,
		schedule: schedule,
		now:      now,
	}
}

// Show displays m for clientID, superseding any message still visible.
// PRE: clientID is non-empty, m is valid
// POST: Current(clientID) returns m until it hides
func (bd *Board) Show(clientID string, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	// Lock order is Board then Banner; expire releases the Banner before calling drop.
	bd.mu.Lock()
	defer bd.mu.Unlock()
	b, ok := bd.banners[clientID]
	if !ok {
		b = NewBannerWithClock(bd.ttl, bd.schedule, bd.now)
		b.onHide = func() { bd.drop(clientID, b) }
		bd.banners[clientID] = b
	}
	return b.Show(m)
}

// Current returns the visible message for clientID.
func (bd *Board) Current(clientID string) (Message, bool) {
	bd.mu.Lock()
	b, ok := bd.banners[clientID]
	bd.mu.Unlock()
	if !ok {
		return Message{}, false
	}
	return b.Current()
}

// Remaining returns the visible message for clientID and the time left before it hides.
func (bd *Board) Remaining(clientID string) (Message, time.Duration, bool) {
	bd.mu.Lock()
	b, ok := bd.banners[clientID]
	bd.mu.Unlock()
	if !ok {
		return Message{}, 0, false
	}
	return b.Remaining()
}

// Dismiss hides any message for clientID and forgets its banner.
func (bd *Board) Dismiss(clientID string) {
	bd.mu.Lock()
	b, ok := bd.banners[clientID]
	delete(bd.banners, clientID)
	bd.mu.Unlock()
	if ok {
		b.Hide()
	}
}

// Len returns the number of clients with a banner.
func (bd *Board) Len() int {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return len(bd.banners)
}

// TTL returns how long messages stay visible.
func (bd *Board) TTL() time.Duration {
	return bd.ttl
}

func (bd *Board) drop(clientID string, b *Banner) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	if bd.banners[clientID] != b {
		return
	}
	if _, visible := b.Current(); visible {
		return
	}
	delete(bd.banners, clientID)
}
