package model

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/gate"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/sync"
)

type fakeBackend struct {
	mu      gosync.Mutex
	convs   []*chat.Conversation
	older   []*chat.Message
	token   string
	seen    []string
	sent    []string
	streams []chan chat.Event
	cursors []chat.Cursor
}

func (f *fakeBackend) session() *chat.Session {
	return &chat.Session{UserID: "u1", Name: "Ana", Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeBackend) SubmitCredentials(_ context.Context, email, password string) (*chat.Session, error) {
	if password != "pw" {
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials}
	}
	return f.session(), nil
}

func (f *fakeBackend) SubmitOAuth(context.Context, string) (*chat.Session, error) {
	return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected}
}

func (f *fakeBackend) Resume(_ context.Context, token string) (*chat.Session, error) {
	if token != "tok-1" {
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials}
	}
	return f.session(), nil
}

func (f *fakeBackend) Register(context.Context, string, string, string) (*chat.Session, error) {
	return f.session(), nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string) (<-chan chat.Event, error) {
	ch := make(chan chat.Event, 16)
	f.mu.Lock()
	f.streams = append(f.streams, ch)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *fakeBackend) LoadSnapshot(context.Context, string) ([]*chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*chat.Conversation, len(f.convs))
	for i, c := range f.convs {
		out[i] = c.Clone()
	}
	return out, nil
}

func (f *fakeBackend) CreateDirectConversation(_ context.Context, self, other string) (*chat.Conversation, error) {
	return &chat.Conversation{ID: "d-" + other, Participants: []string{self, other}, CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) SendMessage(_ context.Context, convID, body, _ string) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	return &chat.Message{ID: "sent-" + body, ConversationID: convID, SenderID: "u1", Body: body, CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) MarkSeen(_ context.Context, convID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, convID)
	return nil
}

func (f *fakeBackend) Providers(context.Context) ([]string, error) { return []string{"github"}, nil }

func (f *fakeBackend) ListUsers(context.Context) ([]chat.User, error) {
	return []chat.User{{ID: "u2", Name: "Bea"}}, nil
}

func (f *fakeBackend) CreateGroup(_ context.Context, name string, members []string) (*chat.Conversation, error) {
	return &chat.Conversation{ID: "g1", Name: name, IsGroup: true, Participants: append([]string{"u1"}, members...), CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) DeleteConversation(context.Context, string) error { return nil }

func (f *fakeBackend) ListMessages(_ context.Context, _ string, before chat.Cursor, _ int) ([]*chat.Message, bool, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, before)
	f.mu.Unlock()
	return f.older, false, nil
}

func (f *fakeBackend) Status(context.Context) (*rpc.StatusResponse, error) {
	return &rpc.StatusResponse{Profile: "test"}, nil
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeBackend) counts() (seen, sent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen), len(f.sent)
}

type memTokens struct{ token string }

func (m *memTokens) Load() (string, error)   { return m.token, nil }
func (m *memTokens) Save(token string) error { m.token = token; return nil }
func (m *memTokens) Clear() error            { m.token = ""; return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func setup(t *testing.T, b *fakeBackend, tokens TokenCache) *ViewModel {
	t.Helper()
	vm := NewViewModel(b, tokens, sync.Settings{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	vm.Start(ctx)
	t.Cleanup(func() {
		cancel()
		vm.Close()
	})
	return vm
}

func directWithMessage() *chat.Conversation {
	t0 := time.Now().Add(-time.Minute)
	return &chat.Conversation{
		ID:            "c1",
		Participants:  []string{"u1", "u2"},
		Users:         []chat.User{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Bea"}},
		CreatedAt:     t0,
		LastMessageAt: t0,
		Messages:      []*chat.Message{{ID: "m1", ConversationID: "c1", SenderID: "u2", Body: "hi", CreatedAt: t0}},
	}
}

func TestSignInOpenAndSend(t *testing.T) {
	b := &fakeBackend{convs: []*chat.Conversation{directWithMessage()}}
	tokens := &memTokens{}
	vm := setup(t, b, tokens)
	ctx := context.Background()

	if err := vm.SignIn(ctx, "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if tokens.token != "tok-1" {
		t.Errorf("token not cached: %q", tokens.token)
	}
	waitFor(t, "snapshot", vm.Ready)

	items := vm.Items()
	if len(items) != 1 || !items[0].Unread || items[0].DisplayName != "Bea" {
		t.Fatalf("items = %+v", items)
	}
	if vm.UnreadCount() != 1 {
		t.Errorf("unread = %d", vm.UnreadCount())
	}
	if vm.UserName("u2") != "Bea" || vm.UserName("u1") != "You" {
		t.Errorf("names = %s/%s", vm.UserName("u2"), vm.UserName("u1"))
	}

	if err := vm.Open(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if vm.Active() != "c1" || vm.Items()[0].Unread {
		t.Error("open should activate and mark seen")
	}
	waitFor(t, "seen delivered", func() bool { seen, _ := b.counts(); return seen == 1 })

	if err := vm.Send(ctx, "c1", "  hello  "); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "echo applied", func() bool {
		c, ok := vm.Conversation("c1")
		return ok && c.Latest().Body == "hello"
	})
	if err := vm.Send(ctx, "c1", "   "); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, sent := b.counts(); sent != 1 {
		t.Errorf("blank message sent: %d", sent)
	}

	vm.Leave()
	if vm.Active() != "" {
		t.Error("leave should clear the active conversation")
	}
}

func TestLoadHistoryMergesOlderMessages(t *testing.T) {
	c := directWithMessage()
	b := &fakeBackend{
		convs: []*chat.Conversation{c},
		older: []*chat.Message{{ID: "m0", ConversationID: "c1", SenderID: "u1", Body: "earlier", CreatedAt: c.CreatedAt.Add(-time.Hour)}},
	}
	vm := setup(t, b, &memTokens{})
	ctx := context.Background()
	if _, err := vm.LoadHistory(ctx, "c1"); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("signed-out history err = %v", err)
	}

	if err := vm.SignIn(ctx, "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "snapshot", vm.Ready)
	if _, err := vm.LoadHistory(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	got, _ := vm.Conversation("c1")
	if len(got.Messages) != 2 || got.Messages[0].ID != "m0" {
		t.Errorf("messages = %d, first %s", len(got.Messages), got.Messages[0].ID)
	}
	if vm.Items()[0].Preview != "hi" {
		t.Errorf("older message changed the preview: %q", vm.Items()[0].Preview)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cursors) != 1 || b.cursors[0].ID != "m1" || !b.cursors[0].CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("history cursor = %+v", b.cursors)
	}
}

func TestResumeCachedAndSignOut(t *testing.T) {
	b := &fakeBackend{}
	tokens := &memTokens{}
	vm := setup(t, b, tokens)
	ctx := context.Background()

	ok, err := vm.ResumeCached(ctx)
	if ok || err != nil {
		t.Fatalf("empty cache: %v %v", ok, err)
	}

	tokens.token = "stale"
	ok, err = vm.ResumeCached(ctx)
	if ok || err == nil {
		t.Fatal("stale token should fail")
	}
	if tokens.token != "" {
		t.Error("stale token should be cleared")
	}
	if n := vm.Notices(); len(n) != 1 {
		t.Errorf("notices = %d", len(n))
	}

	tokens.token = "tok-1"
	ok, err = vm.ResumeCached(ctx)
	if !ok || err != nil {
		t.Fatalf("resume: %v %v", ok, err)
	}
	if vm.Status() != gate.Authenticated {
		t.Fatalf("status = %s", vm.Status())
	}

	if err := vm.SignOut(); err != nil {
		t.Fatal(err)
	}
	if vm.Status() != gate.Unauthenticated || tokens.token != "" || vm.Items() != nil {
		t.Errorf("after sign out: status %s token %q items %v", vm.Status(), tokens.token, vm.Items())
	}
}

func TestStartDirectAndGroup(t *testing.T) {
	vm := setup(t, &fakeBackend{}, nil)
	ctx := context.Background()
	if _, err := vm.StartDirect(ctx, "u2"); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("signed-out direct err = %v", err)
	}

	if err := vm.SignIn(ctx, "ana@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "snapshot", vm.Ready)

	c, err := vm.StartDirect(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	again, err := vm.StartDirect(ctx, "u2")
	if err != nil || again.ID != c.ID {
		t.Errorf("second lookup = %v, %v", again, err)
	}

	g, err := vm.CreateGroup(ctx, " Book club ", []string{"u2", "u3"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := vm.Conversation(g.ID); !ok {
		t.Error("group not in index")
	}
	if len(vm.Items()) != 2 {
		t.Errorf("items = %d", len(vm.Items()))
	}
}
