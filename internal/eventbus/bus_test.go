package eventbus

import (
	"testing"
	"time"
)

func TestPublishOrderPerSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	sub := b.Subscribe(8)
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		b.Publish(Event{Kind: Kind("k"), Data: i})
	}
	for i := 0; i < 5; i++ {
		ev := <-sub.C
		if ev.Data.(int) != i {
			t.Fatalf("event %d out of order: %v", i, ev.Data)
		}
		if ev.Time.IsZero() {
			t.Fatal("Publish should stamp a time")
		}
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	sub := b.Subscribe(2)
	defer sub.Cancel()

	for i := 0; i < 10; i++ {
		b.Publish(Event{Kind: Kind("k"), Data: i})
	}
	// Buffer holds the first two; the rest were dropped, not blocked on.
	n := 0
	for {
		select {
		case <-sub.C:
			n++
		default:
			if n != 2 {
				t.Fatalf("buffered %d events, want 2", n)
			}
			return
		}
	}
}

func TestPublishAfterCancelDoesNotPanic(t *testing.T) {
	t.Parallel()
	b := New()
	sub := b.Subscribe(1)
	sub.Cancel()
	sub.Cancel() // idempotent

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Publish(Event{Kind: Kind("k")})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after cancel")
	}
}

func TestFanout(t *testing.T) {
	t.Parallel()
	b := New()
	s1 := b.Subscribe(4)
	s2 := b.Subscribe(4)
	defer s1.Cancel()
	defer s2.Cancel()

	b.Publish(Event{Kind: Kind("k"), Data: "x"})
	for _, s := range []*Sub{s1, s2} {
		select {
		case ev := <-s.C:
			if ev.Data != "x" {
				t.Fatalf("data = %v", ev.Data)
			}
		default:
			t.Fatal("subscriber missed event")
		}
	}
}
