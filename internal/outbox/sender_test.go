package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
)

// mockPublisher records calls and returns configurable results.
type mockPublisher struct {
	mu      sync.Mutex
	sends   []string
	seen    []string
	sendErr error
	seenErr error
	block   chan struct{}
}

func (m *mockPublisher) SendMessage(_ context.Context, conversationID, body, _ string) (*chat.Message, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, body)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &chat.Message{ID: "srv-" + body, ConversationID: conversationID, Body: body}, nil
}

func (m *mockPublisher) MarkSeen(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, conversationID)
	return m.seenErr
}

func (m *mockPublisher) calls() ([]string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sends...), append([]string(nil), m.seen...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSenderDeliversInOrder(t *testing.T) {
	pub := &mockPublisher{}
	s := NewSender(pub, bus.New(), nil, 8)

	sent := make(chan *chat.Message, 4)
	s.OnSent(func(m *chat.Message) { sent <- m })

	s.Start(context.Background())
	defer s.Stop()

	for _, body := range []string{"one", "two", "three"} {
		if err := s.SendMessage(context.Background(), "c1", body, ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PublishSeen(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		sends, seen := pub.calls()
		return len(sends) == 3 && len(seen) == 1
	})
	sends, _ := pub.calls()
	if sends[0] != "one" || sends[1] != "two" || sends[2] != "three" {
		t.Errorf("send order = %v", sends)
	}
	if m := <-sent; m.ID != "srv-one" {
		t.Errorf("first echoed message = %s, want srv-one", m.ID)
	}
}

func TestSendFailurePublishedNotRetried(t *testing.T) {
	pub := &mockPublisher{sendErr: errors.New("unavailable")}
	b := bus.New()
	failures, unsub := b.Subscribe(bus.KindSendFailed, 4)
	defer unsub()

	s := NewSender(pub, b, nil, 8)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.SendMessage(context.Background(), "c1", "hello", ""); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-failures:
		f, ok := evt.Payload.(SendFailure)
		if !ok {
			t.Fatalf("payload = %T", evt.Payload)
		}
		if f.ConversationID != "c1" || f.Body != "hello" || f.Err == nil {
			t.Errorf("failure = %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no send_failed event")
	}

	time.Sleep(50 * time.Millisecond)
	if sends, _ := pub.calls(); len(sends) != 1 {
		t.Errorf("send attempts = %d, want 1", len(sends))
	}
}

func TestSeenFailureIsTransportNotice(t *testing.T) {
	pub := &mockPublisher{seenErr: chat.ErrTransportUnavailable}
	b := bus.New()
	notices, unsub := b.Subscribe("notice.", 4)
	defer unsub()

	s := NewSender(pub, b, nil, 8)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.PublishSeen(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-notices:
		if evt.Kind != bus.KindTransportUnavailable {
			t.Errorf("kind = %s", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no transport notice")
	}
}

func TestQueueFullAndStopped(t *testing.T) {
	pub := &mockPublisher{block: make(chan struct{})}
	s := NewSender(pub, nil, nil, 1)
	s.Start(context.Background())

	// First job is taken by the loop and blocks, second fills the queue.
	if err := s.SendMessage(context.Background(), "c1", "a", ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Pending() == 0 })
	if err := s.SendMessage(context.Background(), "c1", "b", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.SendMessage(context.Background(), "c1", "c", ""); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third offer error = %v, want ErrQueueFull", err)
	}

	close(pub.block)
	s.Stop()
	if err := s.PublishSeen(context.Background(), "c1"); !errors.Is(err, ErrStopped) {
		t.Errorf("offer after Stop error = %v, want ErrStopped", err)
	}
}
