// Package client talks to a parley daemon. A Client implements the
// interfaces the reconciliation core depends on: gate.IdentityProvider,
// sync.Persistence, sync.Transport, chat.DirectCreator and outbox.Publisher.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultStreamBuffer is the channel size of a Subscribe stream.
const DefaultStreamBuffer = 64

// Verification is what the user must do to approve a device-flow sign-in.
type Verification struct {
	Provider  string
	URI       string
	UserCode  string
	ExpiresAt time.Time
}

// Client is a connection to one daemon. It carries the bearer token of the
// current session.
type Client struct {
	conn   *grpc.ClientConn
	auth   *rpc.AuthClient
	convs  *rpc.ConversationClient
	msgs   *rpc.MessageClient
	events *rpc.EventClient
	daemon *rpc.DaemonClient
	logger *zap.Logger

	mu       sync.RWMutex
	token    string
	onVerify func(Verification)
}

// Dial connects to the daemon listening on socketPath. The connection is
// established lazily on the first call.
func Dial(socketPath string, logger *zap.Logger) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	c := New(conn, logger)
	c.conn = conn
	return c, nil
}

// New wraps an existing connection. Close does not close cc.
func New(cc grpc.ClientConnInterface, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		auth:   rpc.NewAuthClient(cc),
		convs:  rpc.NewConversationClient(cc),
		msgs:   rpc.NewMessageClient(cc),
		events: rpc.NewEventClient(cc),
		daemon: rpc.NewDaemonClient(cc),
		logger: logger,
	}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// SetToken sets the bearer token sent with every call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnVerification registers fn to show device-flow instructions during
// SubmitOAuth.
func (c *Client) OnVerification(fn func(Verification)) {
	c.mu.Lock()
	c.onVerify = fn
	c.mu.Unlock()
}

func (c *Client) authed(ctx context.Context) context.Context {
	if token := c.Token(); token != "" {
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return ctx
}

func (c *Client) signedIn(resp *rpc.SessionResponse, err error) (*chat.Session, error) {
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if resp.Session == nil {
		return nil, errors.New("daemon returned no session")
	}
	c.SetToken(resp.Session.Token)
	return resp.Session, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*chat.Session, error) {
	return c.signedIn(c.auth.Register(ctx, &rpc.RegisterRequest{Name: name, Email: email, Password: password}))
}

// SubmitCredentials signs in with email and password.
func (c *Client) SubmitCredentials(ctx context.Context, email, password string) (*chat.Session, error) {
	return c.signedIn(c.auth.Login(ctx, &rpc.LoginRequest{Email: email, Password: password}))
}

// Resume exchanges a cached token for a fresh session.
func (c *Client) Resume(ctx context.Context, token string) (*chat.Session, error) {
	return c.signedIn(c.auth.Resume(ctx, &rpc.ResumeRequest{Token: token}))
}

// SubmitOAuth runs a device-flow sign-in through the daemon. It blocks until
// the provider answers or ctx ends.
func (c *Client) SubmitOAuth(ctx context.Context, providerID string) (*chat.Session, error) {
	stream, err := c.auth.LoginOAuth(ctx, &rpc.LoginOAuthRequest{Provider: providerID})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil, &chat.AuthFailure{Reason: chat.ReasonProviderUnavailable, Err: errors.New("sign-in stream ended early")}
		}
		if err != nil {
			return nil, rpc.FromStatus(err)
		}
		switch evt.Type {
		case rpc.OAuthVerification:
			c.mu.RLock()
			fn := c.onVerify
			c.mu.RUnlock()
			c.logger.Info("oauth verification pending", zap.String("provider", providerID), zap.String("uri", evt.VerificationURI))
			if fn != nil {
				fn(Verification{Provider: providerID, URI: evt.VerificationURI, UserCode: evt.UserCode, ExpiresAt: evt.ExpiresAt})
			}
		case rpc.OAuthAuthenticated:
			return c.signedIn(&rpc.SessionResponse{Session: evt.Session}, nil)
		case rpc.OAuthFailed:
			return nil, &chat.AuthFailure{Reason: evt.Reason, Err: errors.New(evt.Message)}
		}
	}
}

// Providers lists the OAuth providers the daemon offers.
func (c *Client) Providers(ctx context.Context) ([]string, error) {
	resp, err := c.auth.Providers(ctx, &rpc.ProvidersRequest{})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Providers, nil
}

// Status returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	resp, err := c.daemon.Status(ctx, &rpc.StatusRequest{})
	return resp, rpc.FromStatus(err)
}
