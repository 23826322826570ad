// Package notify fans lifecycle events out to subscribers: the SSE stream,
// the Telegram sink, anything else that attaches. Delivery is best-effort;
// the coordinator never blocks on a slow consumer.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

type Broadcaster struct {
	subscribers map[uint64]chan *models.Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.Event),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan *models.Event) {
	id := b.nextID.Add(1)
	ch := make(chan *models.Event, 64)

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

func (b *Broadcaster) Publish(e *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
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

// Close closes every subscriber channel so attached consumers exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
