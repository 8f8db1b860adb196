package eventbus

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "a", Data: 1})
	e := recvEvent(t, ch)
	if e.Type != "a" || e.Data != 1 {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Time.IsZero() {
		t.Fatal("expected Publish to stamp a time")
	}
}

func TestSubscribeTypeFilter(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4, "crawl.done")
	defer unsub()

	b.Publish(Event{Type: "crawl.data", Data: "ignored"})
	b.Publish(Event{Type: "crawl.done"})

	e := recvEvent(t, ch)
	if e.Type != "crawl.done" {
		t.Fatalf("filter let through %q", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event: %+v", e)
	default:
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "x", Data: 1})
	b.Publish(Event{Type: "x", Data: 2}) // buffer full, dropped

	e := recvEvent(t, ch)
	if e.Data != 1 {
		t.Fatalf("expected first event, got %+v", e)
	}
	select {
	case e := <-ch:
		t.Fatalf("expected second event to be dropped, got %+v", e)
	default:
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	// Channel is closed now; Publish must not panic.
	b.Publish(Event{Type: "x"})
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
}
