// Package model holds the client-side state behind the terminal UI: the
// session gate, the live controller and the outbound queue of one profile.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/gate"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/sync"
	"go.uber.org/zap"
)

// HistoryPage is how many older messages LoadHistory fetches at once.
const HistoryPage = 50

// ErrSignedOut is returned by operations that need a session.
var ErrSignedOut = errors.New("not signed in")

// Backend is the daemon connection the view model drives.
type Backend interface {
	gate.IdentityProvider
	sync.Transport
	sync.Persistence
	chat.DirectCreator
	outbox.Publisher

	Register(ctx context.Context, name, email, password string) (*chat.Session, error)
	Providers(ctx context.Context) ([]string, error)
	ListUsers(ctx context.Context) ([]chat.User, error)
	CreateGroup(ctx context.Context, name string, members []string) (*chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string, before chat.Cursor, limit int) ([]*chat.Message, bool, error)
	Status(ctx context.Context) (*rpc.StatusResponse, error)
	SetToken(token string)
}

// TokenCache persists the bearer token between runs.
type TokenCache interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// ProfileTokens caches the token in the profile directory of the named profile.
type ProfileTokens string

// Load implements TokenCache.
func (p ProfileTokens) Load() (string, error) { return profile.LoadToken(string(p)) }

// Save implements TokenCache.
func (p ProfileTokens) Save(token string) error { return profile.SaveToken(string(p), token) }

// Clear implements TokenCache.
func (p ProfileTokens) Clear() error { return profile.ClearToken(string(p)) }

// ViewModel wires the gate, controller and sender of one client and exposes
// what the views render.
type ViewModel struct {
	backend Backend
	tokens  TokenCache
	bus     *bus.Bus
	gate    *gate.Gate
	ctrl    *sync.Controller
	sender  *outbox.Sender
	logger  *zap.Logger
}

// NewViewModel creates a view model. Call Start before use and Close when done.
func NewViewModel(b Backend, tokens TokenCache, settings sync.Settings, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	eb := bus.New()
	sender := outbox.NewSender(b, eb, logger.Named("outbox"), 0)
	g := gate.New(b, eb, logger.Named("gate"))
	ctrl := sync.NewController(b, b, sender, b, settings, eb, logger.Named("sync"))
	ctrl.Attach(g)

	vm := &ViewModel{
		backend: b,
		tokens:  tokens,
		bus:     eb,
		gate:    g,
		ctrl:    ctrl,
		sender:  sender,
		logger:  logger,
	}
	sender.OnSent(vm.echo)
	return vm
}

// Start runs the outbound queue until ctx ends or Close is called.
func (vm *ViewModel) Start(ctx context.Context) {
	vm.sender.Start(ctx)
}

// Close tears down the live stream and the outbound queue.
func (vm *ViewModel) Close() {
	vm.ctrl.Close()
	vm.sender.Stop()
}

// Subscribe returns the client-local events the views react to.
func (vm *ViewModel) Subscribe(buffer int) (<-chan bus.Event, func()) {
	return vm.bus.Subscribe("", buffer)
}

// Status returns the gate status.
func (vm *ViewModel) Status() gate.Status { return vm.gate.Current() }

// Session returns the active session, or nil.
func (vm *ViewModel) Session() *chat.Session { return vm.gate.Session() }

// Notices returns the sign-in failures recorded so far.
func (vm *ViewModel) Notices() []gate.Notice { return vm.gate.Notices() }

// SetSurface records which view is in front.
func (vm *ViewModel) SetSurface(s gate.Surface) { vm.gate.SetSurface(s) }

// Ready reports whether the live index holds the initial snapshot.
func (vm *ViewModel) Ready() bool {
	r := vm.ctrl.Reconciler()
	return r != nil && r.Ready()
}

// ResumeCached signs in with the cached token. It reports false without
// error when no token is cached.
func (vm *ViewModel) ResumeCached(ctx context.Context) (bool, error) {
	if vm.tokens == nil {
		return false, nil
	}
	token, err := vm.tokens.Load()
	if err != nil || token == "" {
		return false, err
	}
	if _, err := vm.gate.Resume(ctx, token); err != nil {
		_ = vm.tokens.Clear()
		return false, err
	}
	return true, nil
}

// SignIn authenticates with email and password.
func (vm *ViewModel) SignIn(ctx context.Context, email, password string) error {
	s, err := vm.gate.SignIn(ctx, strings.TrimSpace(email), password)
	return vm.remember(s, err)
}

// SignInOAuth authenticates with a configured provider.
func (vm *ViewModel) SignInOAuth(ctx context.Context, providerID string) error {
	s, err := vm.gate.SignInOAuth(ctx, providerID)
	return vm.remember(s, err)
}

// Register creates an account and signs it in through the gate.
func (vm *ViewModel) Register(ctx context.Context, name, email, password string) error {
	s, err := vm.backend.Register(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	s, err = vm.gate.Resume(ctx, s.Token)
	return vm.remember(s, err)
}

func (vm *ViewModel) remember(s *chat.Session, err error) error {
	if err != nil {
		return err
	}
	if vm.tokens != nil {
		if err := vm.tokens.Save(s.Token); err != nil {
			vm.logger.Warn("token not cached", zap.Error(err))
		}
	}
	return nil
}

// SignOut ends the session and forgets the cached token.
func (vm *ViewModel) SignOut() error {
	if err := vm.gate.SignOut(); err != nil {
		return err
	}
	vm.backend.SetToken("")
	if vm.tokens != nil {
		return vm.tokens.Clear()
	}
	return nil
}

// Providers lists the OAuth providers the daemon offers.
func (vm *ViewModel) Providers(ctx context.Context) ([]string, error) {
	return vm.backend.Providers(ctx)
}

// Items returns the conversation list, or nil while signed out.
func (vm *ViewModel) Items() []chat.Item {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return nil
	}
	return r.Projection()
}

// UnreadCount returns how many conversations are unread.
func (vm *ViewModel) UnreadCount() int {
	n := 0
	for _, it := range vm.Items() {
		if it.Unread {
			n++
		}
	}
	return n
}

// Conversation returns a copy of a conversation from the live index.
func (vm *ViewModel) Conversation(id string) (*chat.Conversation, bool) {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return nil, false
	}
	return r.Conversation(id)
}

// UserName resolves a user id to a display name.
func (vm *ViewModel) UserName(id string) string {
	if s := vm.Session(); s != nil && s.UserID == id {
		return "You"
	}
	if r := vm.ctrl.Reconciler(); r != nil {
		if u, ok := r.User(id); ok && u.Name != "" {
			return u.Name
		}
	}
	return id
}

// Active returns the conversation open in the thread view.
func (vm *ViewModel) Active() string {
	if r := vm.ctrl.Reconciler(); r != nil {
		return r.Active()
	}
	return ""
}

// Open makes id the active conversation and marks it seen.
func (vm *ViewModel) Open(ctx context.Context, id string) error {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return ErrSignedOut
	}
	if _, ok := r.Conversation(id); !ok {
		return fmt.Errorf("open %s: %w", id, chat.ErrNotFound)
	}
	r.SetActive(id)
	vm.gate.SetSurface(gate.SurfaceConversation)
	return vm.MarkSeen(ctx, id)
}

// Leave clears the active conversation.
func (vm *ViewModel) Leave() {
	if r := vm.ctrl.Reconciler(); r != nil {
		r.SetActive("")
	}
	vm.gate.SetSurface(gate.SurfaceConversations)
}

// MarkSeen marks the latest message of id as seen when it is not already.
func (vm *ViewModel) MarkSeen(ctx context.Context, id string) error {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return ErrSignedOut
	}
	if r.HasSeen(id) {
		return nil
	}
	return r.MarkSeen(ctx, id)
}

// LoadHistory fetches the page of messages before the oldest one held for
// id and merges it into the index. It reports whether older messages remain.
func (vm *ViewModel) LoadHistory(ctx context.Context, id string) (bool, error) {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return false, ErrSignedOut
	}
	var before chat.Cursor
	if c, ok := r.Conversation(id); ok && len(c.Messages) > 0 {
		before = chat.CursorBefore(c.Messages[0])
	}
	msgs, more, err := vm.backend.ListMessages(ctx, id, before, HistoryPage)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if err := r.Apply(chat.Event{Type: chat.MessageCreated, ConversationID: id, Message: m}); err != nil {
			return more, err
		}
	}
	return more, nil
}

// Send queues a message for the active conversation.
func (vm *ViewModel) Send(ctx context.Context, conversationID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	return vm.sender.SendMessage(ctx, conversationID, body, "")
}

// echo applies an accepted message locally before the stream delivers it.
func (vm *ViewModel) echo(m *chat.Message) {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return
	}
	if err := r.Apply(chat.Event{Type: chat.MessageCreated, ConversationID: m.ConversationID, Message: m}); err != nil {
		vm.logger.Debug("echo skipped", zap.String("message_id", m.ID), zap.Error(err))
	}
}

// PendingWrites returns how many writes are waiting in the outbound queue.
func (vm *ViewModel) PendingWrites() int { return vm.sender.Pending() }

// Users lists everyone the signed-in user can talk to.
func (vm *ViewModel) Users(ctx context.Context) ([]chat.User, error) {
	return vm.backend.ListUsers(ctx)
}

// StartDirect finds or creates the direct conversation with userID.
func (vm *ViewModel) StartDirect(ctx context.Context, userID string) (*chat.Conversation, error) {
	s := vm.Session()
	resolver := vm.ctrl.Resolver()
	if s == nil || resolver == nil {
		return nil, ErrSignedOut
	}
	return resolver.FindOrCreate(ctx, s.UserID, userID)
}

// CreateGroup creates a named group with the given members.
func (vm *ViewModel) CreateGroup(ctx context.Context, name string, members []string) (*chat.Conversation, error) {
	r := vm.ctrl.Reconciler()
	if r == nil {
		return nil, ErrSignedOut
	}
	c, err := vm.backend.CreateGroup(ctx, strings.TrimSpace(name), members)
	if err != nil {
		return nil, err
	}
	r.UpsertConversation(c)
	return c, nil
}

// Delete removes a conversation for all participants. The index drops it
// when the removal event arrives.
func (vm *ViewModel) Delete(ctx context.Context, id string) error {
	return vm.backend.DeleteConversation(ctx, id)
}

// DaemonStatus reports the daemon's profile and counters.
func (vm *ViewModel) DaemonStatus(ctx context.Context) (*rpc.StatusResponse, error) {
	return vm.backend.Status(ctx)
}
