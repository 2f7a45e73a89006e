package event

import "sync"

// Envelope wraps a published snapshot with its version stamp. Versions
// are strictly increasing per hub; consumers can detect missed updates
// by comparing stamps.
type Envelope[T any] struct {
	Version uint64 `json:"version"`
	Payload T      `json:"payload"`
}

// Hub is a minimal publish/subscribe fan-out for immutable snapshots.
// Publishers hand over a fresh value; subscribers receive it on a
// buffered channel. A slow subscriber loses intermediate versions
// rather than blocking the publisher.
type Hub[T any] struct {
	mu      sync.RWMutex
	subs    map[int]chan Envelope[T]
	nextID  int
	version uint64
	last    Envelope[T]
	hasLast bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan Envelope[T])}
}

// Publish stamps v with the next version and fans it out. Never blocks:
// if a subscriber's buffer is full, the oldest buffered envelope is
// dropped in favor of the new one.
func (h *Hub[T]) Publish(v T) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.version++
	env := Envelope[T]{Version: h.version, Payload: v}
	h.last = env
	h.hasLast = true

	for _, ch := range h.subs {
		select {
		case ch <- env:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- env:
			default:
			}
		}
	}
	return env.Version
}

// Subscribe registers a new subscriber. The current snapshot, if any, is
// delivered first. The returned cancel func unregisters and closes the
// channel; it is safe to call more than once.
func (h *Hub[T]) Subscribe(buffer int) (<-chan Envelope[T], func()) {
	if buffer < 1 {
		buffer = 1
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan Envelope[T], buffer)
	h.subs[id] = ch
	if h.hasLast {
		ch <- h.last
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Latest returns the most recently published envelope.
func (h *Hub[T]) Latest() (Envelope[T], bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.hasLast
}

// Version returns the current version stamp (0 if nothing published).
func (h *Hub[T]) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub[T]) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
