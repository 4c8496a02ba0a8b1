package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	if n := b.Publish(NewEvent(KindStatusChanged, "test")); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusChanged)
		}
		if evt.Timestamp.IsZero() {
			t.Error("event not timestamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("nav.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged})
	b.Publish(Event{Kind: KindNavAway})

	select {
	case evt := <-ch:
		if evt.Kind != KindNavAway {
			t.Errorf("got kind %q, want %s", evt.Kind, KindNavAway)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUserNamespacesDoNotOverlap(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe(UserNamespace("u1"), 10)
	defer unsub1()
	ch10, unsub10 := b.Subscribe(UserNamespace("u10"), 10)
	defer unsub10()

	b.Publish(Event{Kind: UserKind("u10", "message.created")})

	select {
	case evt := <-ch1:
		t.Errorf("u1 received event for u10: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-ch10:
	case <-time.After(time.Second):
		t.Fatal("u10 did not receive its event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	if n := b.Publish(Event{Kind: KindStatusChanged}); n != 0 {
		t.Errorf("delivered = %d after unsubscribe", n)
	}
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if n := b.Subscribers("session."); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}
