package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
)

// ErrMissingFields is returned by Register when name or email is blank.
var ErrMissingFields = errors.New("name and email are required")

// UserStore is the persistence the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*chat.User, error)
	UserByEmail(ctx context.Context, email string) (*chat.User, string, error)
	User(ctx context.Context, id string) (*chat.User, error)
	UpsertOAuthUser(ctx context.Context, provider, email, name, image string) (*chat.User, error)
}

// Authenticator turns credentials, tokens and provider identities into sessions.
type Authenticator struct {
	users   UserStore
	tokens  *Tokens
	limiter *Limiter
	oauth   *OAuth
	logger  *zap.Logger
}

// NewAuthenticator wires the authenticator. oauth may be nil.
func NewAuthenticator(users UserStore, tokens *Tokens, limiter *Limiter, oauth *OAuth, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if oauth == nil {
		oauth = NewOAuth(nil, nil)
	}
	return &Authenticator{users: users, tokens: tokens, limiter: limiter, oauth: oauth, logger: logger}
}

// Tokens returns the token issuer used for sessions.
func (a *Authenticator) Tokens() *Tokens { return a.tokens }

// OAuth returns the provider helper.
func (a *Authenticator) OAuth() *OAuth { return a.oauth }

func (a *Authenticator) session(u *chat.User) (*chat.Session, error) {
	token, expires, err := a.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &chat.Session{UserID: u.ID, Name: u.Name, Email: u.Email, Token: token, ExpiresAt: expires}, nil
}

// Register creates a password account and signs it in.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (*chat.Session, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, ErrMissingFields
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := a.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		return nil, err
	}
	a.logger.Info("user registered", zap.String("user_id", u.ID))
	return a.session(u)
}

// Login verifies email and password.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*chat.Session, error) {
	if !a.limiter.Allow(email) {
		a.logger.Warn("login throttled", zap.String("email", email))
		return nil, &chat.AuthFailure{Reason: chat.ReasonRateLimited}
	}
	u, hash, err := a.users.UserByEmail(ctx, email)
	if errors.Is(err, chat.ErrNotFound) {
		CheckPassword("", password)
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(hash, password) {
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials}
	}
	return a.session(u)
}

// Resume exchanges a still-valid token for a fresh session.
func (a *Authenticator) Resume(ctx context.Context, token string) (*chat.Session, error) {
	userID, _, err := a.tokens.Verify(token)
	if err != nil {
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials, Err: err}
	}
	u, err := a.users.User(ctx, userID)
	if errors.Is(err, chat.ErrNotFound) {
		return nil, &chat.AuthFailure{Reason: chat.ReasonInvalidCredentials, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return a.session(u)
}

// CompleteOAuth signs in the user behind a provider identity, creating it
// on first use. An email already owned by another sign-in method is
// rejected rather than linked.
func (a *Authenticator) CompleteOAuth(ctx context.Context, id *Identity) (*chat.Session, error) {
	u, err := a.users.UpsertOAuthUser(ctx, id.Provider, id.Email, id.Name, id.Image)
	if errors.Is(err, chat.ErrAccountLinked) {
		a.logger.Warn("oauth sign-in refused", zap.String("provider", id.Provider), zap.Error(err))
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("upsert oauth user: %w", err)
	}
	a.logger.Info("oauth sign-in", zap.String("provider", id.Provider), zap.String("user_id", u.ID))
	return a.session(u)
}
