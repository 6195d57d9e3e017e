package pubsub

import (
	"log/slog"
	"sync"

	"rpcsubscriptions/metrics"
)

// broadcaster fans a BroadcastMessage out to every registered transport
// receiver. Go has no built-in multi-consumer broadcast channel (unlike
// the Rust original's tokio::sync::broadcast), so registered receivers
// are tracked explicitly and each is given a bounded, buffered channel;
// a receiver that can't keep up has its message dropped rather than
// stalling the publisher (spec §5 "lagging receiver slips", grounded on
// adred-codev-ws_poc/pkg/websocket/hub.go's select-default-drop idiom).
//
// Registration and unregistration take the write lock; publishing holds
// the read lock while it iterates the live receiver map, so a receiver
// cannot be closed mid-send. Publishing never blocks on any one
// receiver, so producers (the single dispatcher goroutine, in practice)
// are never slowed down by a slow consumer.
type broadcaster struct {
	mu        sync.RWMutex
	receivers map[uint64]chan BroadcastMessage
	nextID    uint64
	capacity  int
	metrics   *metrics.Engine
}

func newBroadcaster(capacity int, m *metrics.Engine) *broadcaster {
	return &broadcaster{
		receivers: make(map[uint64]chan BroadcastMessage),
		capacity:  capacity,
		metrics:   m,
	}
}

// Receiver registers a new transport receiver and returns the channel it
// should read from, plus a function to unregister it on disconnect.
func (b *broadcaster) Receiver() (<-chan BroadcastMessage, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan BroadcastMessage, b.capacity)
	b.receivers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.receivers[id]; ok {
			delete(b.receivers, id)
			close(existing)
		}
	}
}

// publish fans msg out to every registered receiver without blocking.
func (b *broadcaster) publish(msg BroadcastMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.receivers {
		select {
		case ch <- msg:
		default:
			slog.Warn("broadcast receiver lagging, dropping notification",
				"subscription_id", msg.SubscriptionID)
			if b.metrics != nil {
				b.metrics.BroadcastDropped.Inc()
			}
		}
	}
}
