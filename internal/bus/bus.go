package bus

import (
	"strings"
	"sync"
)

// Bus is the in-process event spine between the WhatsApp adapter, the
// sync engine, the outbox and the terminal UI. Subscribers register a
// kind prefix ("wa.", "sync.", "session.", "message.") and receive every
// event whose Kind starts with it.
type Bus struct {
	mu    sync.RWMutex
	sinks map[int]*sink
	next  int
}

type sink struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		sinks: make(map[int]*sink),
	}
}

// Publish fans the event out to every matching subscriber. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event
// rather than stalling the publisher, so slow consumers size their
// buffers for their namespace's burst rate.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		if strings.HasPrefix(evt.Kind, s.prefix) {
			select {
			case s.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers interest in a kind prefix and returns the receive
// channel together with an unsubscribe function. An empty prefix matches
// everything.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.sinks[id] = &sink{prefix: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.sinks, id)
		b.mu.Unlock()
	}
}
