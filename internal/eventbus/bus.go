// Package eventbus carries the card engine's outbound notifications to
// in-process consumers (renderer bridge, journal, mirror).
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind names an event family, e.g. "card.shown" or "state.changed".
type Kind string

// Event is a lightweight, in-memory signal used to decouple the engine from
// its consumers.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - A single publisher observes its own Publish order; each subscriber
//     receives events in that order (per-subscriber FIFO channel).
//   - Slow subscribers may drop events (bounded backpressure). Consumers
//     that care recover by re-reading the engine snapshot, not by replay.
//
// Data should be small and JSON-serializable (the websocket bridge forwards
// it verbatim).
type Event struct {
	Kind Kind
	Time time.Time
	Data any
}

// Sub is a live subscription. Receive from C; call Cancel exactly once when
// done (Cancel is idempotent and safe to call concurrently with Publish).
type Sub struct {
	C      <-chan Event
	cancel func()
}

func (s *Sub) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) *Sub
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber cancels concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) *Sub {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return &Sub{C: ch, cancel: cancel}
}
