package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
)

// Status is the authentication status of one client connection.
type Status string

const (
	Unauthenticated Status = "unauthenticated"
	Authenticating  Status = "authenticating"
	Authenticated   Status = "authenticated"
)

// Trigger is an input to the gate's state machine.
type Trigger string

const (
	SubmitCredentials Trigger = "submit_credentials"
	SubmitOAuth       Trigger = "submit_oauth"
	ProviderSuccess   Trigger = "provider_success"
	ProviderFailure   Trigger = "provider_failure"
	SessionExpired    Trigger = "session_expired"
	ExplicitSignout   Trigger = "explicit_signout"
)

// validTransitions defines allowed transitions per trigger.
var validTransitions = map[Status]map[Trigger]Status{
	Unauthenticated: {
		SubmitCredentials: Authenticating,
		SubmitOAuth:       Authenticating,
	},
	Authenticating: {
		ProviderSuccess: Authenticated,
		ProviderFailure: Unauthenticated,
	},
	Authenticated: {
		SessionExpired:  Unauthenticated,
		ExplicitSignout: Unauthenticated,
	},
}

// Surface is the view a client is positioned on.
type Surface string

const (
	SurfaceEntry         Surface = "entry"
	SurfaceConversations Surface = "conversations"
	SurfaceConversation  Surface = "conversation"
)

// IdentityProvider issues sessions.
type IdentityProvider interface {
	SubmitCredentials(ctx context.Context, email, password string) (*chat.Session, error)
	SubmitOAuth(ctx context.Context, providerID string) (*chat.Session, error)
	Resume(ctx context.Context, token string) (*chat.Session, error)
}

// Transition is the payload of session.status_changed events and hooks.
type Transition struct {
	From    Status
	To      Status
	Trigger Trigger
	Session *chat.Session
}

// Entered reports whether the transition moved into s.
func (t Transition) Entered(s Status) bool { return t.From != s && t.To == s }

// Left reports whether the transition moved out of s.
func (t Transition) Left(s Status) bool { return t.From == s && t.To != s }

// Notice is a user-visible message raised by the gate.
type Notice struct {
	Text    string
	Failure *chat.AuthFailure
	At      time.Time
}

// Gate tracks the authentication status of one connection and decides when
// the live subscription may exist.
type Gate struct {
	// fire serializes transitions together with their hooks.
	fire sync.Mutex

	mu      sync.RWMutex
	status  Status
	session *chat.Session
	surface Surface
	notices []Notice
	hooks   []func(Transition)
	expiry  *time.Timer

	provider IdentityProvider
	bus      *bus.Bus
	logger   *zap.Logger
}

// New creates a gate in the unauthenticated state positioned on the entry surface.
func New(provider IdentityProvider, b *bus.Bus, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		status:   Unauthenticated,
		surface:  SurfaceEntry,
		provider: provider,
		bus:      b,
		logger:   logger,
	}
}

// Current returns the current status.
func (g *Gate) Current() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Session returns a copy of the active session, or nil.
func (g *Gate) Session() *chat.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Notices returns the notices recorded so far.
func (g *Gate) Notices() []Notice {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Notice, len(g.notices))
	copy(out, g.notices)
	return out
}

// Surface returns the surface the client is positioned on.
func (g *Gate) Surface() Surface {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.surface
}

// SetSurface records the surface the client is positioned on.
func (g *Gate) SetSurface(s Surface) {
	g.mu.Lock()
	g.surface = s
	g.mu.Unlock()
}

// OnTransition registers a hook run synchronously after every transition.
// Hooks must not call Fire.
func (g *Gate) OnTransition(fn func(Transition)) {
	g.mu.Lock()
	g.hooks = append(g.hooks, fn)
	g.mu.Unlock()
}

// Fire applies trigger. session is recorded on ProviderSuccess and ignored
// otherwise. Invalid transitions leave the state untouched.
func (g *Gate) Fire(trigger Trigger, session *chat.Session) error {
	g.fire.Lock()
	defer g.fire.Unlock()
	return g.fireLocked(trigger, session)
}

func (g *Gate) fireLocked(trigger Trigger, session *chat.Session) error {
	g.mu.Lock()
	from := g.status
	to, ok := validTransitions[from][trigger]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("invalid transition from %s on %s", from, trigger)
	}
	if to == Authenticated && session == nil {
		g.mu.Unlock()
		return fmt.Errorf("transition to %s requires a session", Authenticated)
	}
	g.status = to

	redirect := false
	switch {
	case to == Authenticated:
		g.session = session
		g.armExpiryLocked(session)
		if g.surface == SurfaceEntry {
			g.surface = SurfaceConversations
			redirect = true
		}
	case from == Authenticated:
		g.session = nil
		if g.expiry != nil {
			g.expiry.Stop()
			g.expiry = nil
		}
		g.surface = SurfaceEntry
	}
	tr := Transition{From: from, To: to, Trigger: trigger, Session: g.session}
	hooks := append([]func(Transition){}, g.hooks...)
	g.mu.Unlock()

	g.logger.Info("session status changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("trigger", string(trigger)))

	for _, fn := range hooks {
		fn(tr)
	}
	g.publish(bus.KindStatusChanged, tr)
	if redirect {
		g.publish(bus.KindNavRedirect, SurfaceConversations)
	}
	return nil
}

func (g *Gate) armExpiryLocked(s *chat.Session) {
	if g.expiry != nil {
		g.expiry.Stop()
		g.expiry = nil
	}
	if s.ExpiresAt.IsZero() {
		return
	}
	g.expiry = time.AfterFunc(time.Until(s.ExpiresAt), func() { g.expire(s) })
}

// expire ends s if it is still the active session.
func (g *Gate) expire(s *chat.Session) {
	g.fire.Lock()
	defer g.fire.Unlock()

	g.mu.RLock()
	current := g.session == s
	g.mu.RUnlock()
	if !current {
		return
	}
	if err := g.fireLocked(SessionExpired, nil); err != nil {
		g.logger.Debug("session expiry ignored", zap.Error(err))
	}
}

// SignIn authenticates with email and password.
func (g *Gate) SignIn(ctx context.Context, email, password string) (*chat.Session, error) {
	return g.authenticate(SubmitCredentials, func() (*chat.Session, error) {
		return g.provider.SubmitCredentials(ctx, email, password)
	})
}

// SignInOAuth authenticates through a third-party provider.
func (g *Gate) SignInOAuth(ctx context.Context, providerID string) (*chat.Session, error) {
	return g.authenticate(SubmitOAuth, func() (*chat.Session, error) {
		return g.provider.SubmitOAuth(ctx, providerID)
	})
}

// Resume restores a previously issued token.
func (g *Gate) Resume(ctx context.Context, token string) (*chat.Session, error) {
	return g.authenticate(SubmitCredentials, func() (*chat.Session, error) {
		return g.provider.Resume(ctx, token)
	})
}

// SignOut ends the active session.
func (g *Gate) SignOut() error {
	return g.Fire(ExplicitSignout, nil)
}

func (g *Gate) authenticate(submit Trigger, call func() (*chat.Session, error)) (*chat.Session, error) {
	if err := g.Fire(submit, nil); err != nil {
		return nil, err
	}
	s, err := call()
	if err == nil && s == nil {
		err = errors.New("provider returned no session")
	}
	if err != nil {
		failure := asAuthFailure(err)
		g.recordFailure(failure)
		if ferr := g.Fire(ProviderFailure, nil); ferr != nil {
			g.logger.Warn("provider failure not applied", zap.Error(ferr))
		}
		return nil, failure
	}
	if err := g.Fire(ProviderSuccess, s); err != nil {
		return nil, err
	}
	return s, nil
}

// OnSessionChange applies a status pushed by the identity provider.
func (g *Gate) OnSessionChange(status Status, s *chat.Session) error {
	switch cur := g.Current(); {
	case cur == status:
		return nil
	case status == Authenticated && cur == Unauthenticated:
		if err := g.Fire(SubmitOAuth, nil); err != nil {
			return err
		}
		return g.Fire(ProviderSuccess, s)
	case status == Authenticated:
		return g.Fire(ProviderSuccess, s)
	case status == Authenticating:
		return g.Fire(SubmitOAuth, nil)
	case cur == Authenticating:
		g.recordFailure(&chat.AuthFailure{Reason: chat.ReasonProviderRejected})
		return g.Fire(ProviderFailure, nil)
	default:
		return g.Fire(SessionExpired, nil)
	}
}

func (g *Gate) recordFailure(f *chat.AuthFailure) {
	n := Notice{Text: NoticeText, Failure: f, At: time.Now()}
	g.mu.Lock()
	g.notices = append(g.notices, n)
	g.mu.Unlock()

	g.logger.Warn("sign-in failed", zap.String("reason", string(f.Reason)), zap.Error(f.Err))
	g.publish(bus.KindAuthFailed, n)
}

func (g *Gate) publish(kind string, payload any) {
	if g.bus != nil {
		g.bus.Publish(bus.NewEvent(kind, payload))
	}
}

func asAuthFailure(err error) *chat.AuthFailure {
	var f *chat.AuthFailure
	if errors.As(err, &f) {
		return f
	}
	reason := chat.ReasonProviderRejected
	if errors.Is(err, chat.ErrTransportUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		reason = chat.ReasonProviderUnavailable
	}
	return &chat.AuthFailure{Reason: reason, Err: err}
}

// NoticeText is the text of every sign-in failure notice.
const NoticeText = "Invalid credentials"

// Hint returns a reason-specific follow-up for the notice, or "" when the
// credentials themselves were refused.
func (n Notice) Hint() string {
	if n.Failure == nil {
		return ""
	}
	switch n.Failure.Reason {
	case chat.ReasonRateLimited:
		return "too many attempts, try again later"
	case chat.ReasonProviderUnavailable:
		return "sign-in provider unavailable"
	default:
		return ""
	}
}
