package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CZERTAINLY/Spotter/internal/model"
)

const subscriberBuffer = 10

// Broadcaster hands notifications to in-process subscribers, such as event
// streams of connected HTTP clients. A subscriber which does not keep up loses
// events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan model.Notification]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan model.Notification]struct{}),
	}
}

// Subscribe returns a channel with notifications and a function which
// unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan model.Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Notification, subscriberBuffer)
	b.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, ch)
			close(ch)
		})
	}
}

func (b *Broadcaster) Notify(ctx context.Context, n model.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			slog.WarnContext(ctx, "subscriber buffer full, dropping notification", "id", n.ID)
		}
	}
	return nil
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
