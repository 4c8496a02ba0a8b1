package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned for a provider id missing from config.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// ErrUnverifiedEmail is returned when the provider reports the account's
// email as unverified.
var ErrUnverifiedEmail = errors.New("provider email is not verified")

// ProviderConfig describes one OAuth provider using the device flow.
type ProviderConfig struct {
	ID            string
	ClientID      string
	ClientSecret  string
	DeviceAuthURL string
	TokenURL      string
	UserInfoURL   string
	Scopes        []string
}

// Identity is the profile returned by a provider's userinfo endpoint.
type Identity struct {
	Provider string
	Email    string
	Name     string
	Image    string
}

// OAuth runs device-flow sign-ins against the configured providers.
type OAuth struct {
	providers map[string]ProviderConfig
	client    *http.Client
}

// NewOAuth creates an OAuth helper. client may be nil for http.DefaultClient.
func NewOAuth(providers []ProviderConfig, client *http.Client) *OAuth {
	m := make(map[string]ProviderConfig, len(providers))
	for _, p := range providers {
		if p.ID != "" {
			m[p.ID] = p
		}
	}
	return &OAuth{providers: m, client: client}
}

// Providers returns the configured provider ids, sorted.
func (o *OAuth) Providers() []string {
	ids := make([]string, 0, len(o.providers))
	for id := range o.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (o *OAuth) ctx(ctx context.Context) context.Context {
	if o.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.client)
}

// DeviceLogin is a device authorization waiting for the user to approve it.
type DeviceLogin struct {
	ProviderID      string
	VerificationURI string
	UserCode        string
	ExpiresAt       time.Time

	oauth    *OAuth
	cfg      *oauth2.Config
	resp     *oauth2.DeviceAuthResponse
	userInfo string
}

// Start requests a device code from providerID.
func (o *OAuth) Start(ctx context.Context, providerID string) (*DeviceLogin, error) {
	p, ok := o.providers[providerID]
	if !ok {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)}
	}
	cfg := &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: p.DeviceAuthURL,
			TokenURL:      p.TokenURL,
		},
	}
	resp, err := cfg.DeviceAuth(o.ctx(ctx))
	if err != nil {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderUnavailable, Err: fmt.Errorf("device authorization: %w", err)}
	}
	uri := resp.VerificationURIComplete
	if uri == "" {
		uri = resp.VerificationURI
	}
	return &DeviceLogin{
		ProviderID:      providerID,
		VerificationURI: uri,
		UserCode:        resp.UserCode,
		ExpiresAt:       resp.Expiry,
		oauth:           o,
		cfg:             cfg,
		resp:            resp,
		userInfo:        p.UserInfoURL,
	}, nil
}

// Wait polls until the user approves or denies the login, then fetches the
// user's profile.
func (d *DeviceLogin) Wait(ctx context.Context) (*Identity, error) {
	ctx = d.oauth.ctx(ctx)
	tok, err := d.cfg.DeviceAccessToken(ctx, d.resp)
	if err != nil {
		reason := chat.ReasonProviderUnavailable
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			reason = chat.ReasonProviderRejected
		}
		return nil, &chat.AuthFailure{Reason: reason, Err: fmt.Errorf("device token: %w", err)}
	}

	id, err := d.fetchIdentity(ctx, tok)
	if err != nil {
		return nil, err
	}
	id.Provider = d.ProviderID
	return id, nil
}

func (d *DeviceLogin) fetchIdentity(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.userInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderUnavailable, Err: fmt.Errorf("userinfo: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: fmt.Errorf("userinfo: %s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}

	var info struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		Picture   string `json:"picture"`
		AvatarURL string `json:"avatar_url"`
		Verified  *bool  `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: fmt.Errorf("decode userinfo: %w", err)}
	}
	if info.Email == "" {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: errors.New("provider returned no email")}
	}
	// Providers that omit the claim only expose verified addresses.
	if info.Verified != nil && !*info.Verified {
		return nil, &chat.AuthFailure{Reason: chat.ReasonProviderRejected, Err: fmt.Errorf("%w: %s", ErrUnverifiedEmail, info.Email)}
	}
	id := &Identity{Email: info.Email, Name: info.Name, Image: info.Picture}
	if id.Name == "" {
		id.Name = info.Login
	}
	if id.Image == "" {
		id.Image = info.AvatarURL
	}
	return id, nil
}
