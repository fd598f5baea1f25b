package events

import "sync"

const defaultBufSize = 256

// Bus is a channel-based pub/sub event bus with per-topic subscriptions.
// Publish never blocks: a subscriber that falls behind loses events rather
// than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]chan Event
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Event)}
}

// Subscribe returns a read-only channel receiving events published to the
// topic. bufSize <= 0 selects the default buffer of 256. Subscribing to a
// closed bus returns an already-closed channel.
func (b *Bus) Subscribe(topic Topic, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Publish delivers the event to every subscriber of the topic. Subscribers
// with full buffers are skipped.
func (b *Bus) Publish(topic Topic, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Subscriber full, drop.
		}
	}
}

// Close closes the bus and every subscriber channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
}
