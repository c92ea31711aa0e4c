package alert

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-quake-alerts/internal/models"
)

// Broadcaster fans fired alerts out to in-app subscribers (the SSE stream,
// UI listeners). Slow subscribers are skipped rather than blocking dispatch.
type Broadcaster struct {
	subscribers map[uint64]chan models.AlertEvent
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.AlertEvent),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan models.AlertEvent) {
	id := b.nextID.Add(1)
	ch := make(chan models.AlertEvent, 16)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(ev models.AlertEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, letting stream consumers exit
// gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
