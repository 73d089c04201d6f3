// Package events fans out queue-changing writes to live moderator streams.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the write that may have changed the moderation queue
type Kind string

const (
	ArticleSubmitted Kind = "article_submitted"
	ArticleScored    Kind = "article_scored"
	ReportFiled      Kind = "report_filed"
	OverrideApplied  Kind = "override_applied"
)

// Event is published after the write has committed
type Event struct {
	Kind      Kind      `json:"kind"`
	ArticleID uuid.UUID `json:"article_id"`
	At        time.Time `json:"at"`
}

// Hub is an in-process publish/subscribe point. Slow subscribers miss
// events instead of blocking writers; every stream recomputes its snapshot
// from storage, so a missed event only delays the next push.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers ev to every subscriber that has room. Safe on a nil Hub.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
