package api

import (
	"context"
	"errors"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// AuthService implements parley.v1.AuthService.
type AuthService struct {
	auth   *auth.Authenticator
	logger *zap.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(a *auth.Authenticator, logger *zap.Logger) *AuthService {
	return &AuthService{auth: a, logger: nopIfNil(logger)}
}

func (s *AuthService) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.SessionResponse, error) {
	sess, err := s.auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

func (s *AuthService) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.SessionResponse, error) {
	sess, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

func (s *AuthService) Resume(ctx context.Context, req *rpc.ResumeRequest) (*rpc.SessionResponse, error) {
	sess, err := s.auth.Resume(ctx, req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

func (s *AuthService) Providers(_ context.Context, _ *rpc.ProvidersRequest) (*rpc.ProvidersResponse, error) {
	return &rpc.ProvidersResponse{Providers: s.auth.OAuth().Providers()}, nil
}

// LoginOAuth runs a device flow: it streams the verification step, waits
// for the provider, then streams the outcome. Provider failures end the
// stream with an auth_failed event rather than an error.
func (s *AuthService) LoginOAuth(req *rpc.LoginOAuthRequest, stream grpc.ServerStreamingServer[rpc.OAuthEvent]) error {
	ctx := stream.Context()
	login, err := s.auth.OAuth().Start(ctx, req.Provider)
	if err != nil {
		return s.oauthFailed(stream, req.Provider, err)
	}
	if err := stream.Send(&rpc.OAuthEvent{
		Type:            rpc.OAuthVerification,
		VerificationURI: login.VerificationURI,
		UserCode:        login.UserCode,
		ExpiresAt:       login.ExpiresAt,
	}); err != nil {
		return err
	}

	id, err := login.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return toStatus(ctx.Err())
		}
		return s.oauthFailed(stream, req.Provider, err)
	}
	sess, err := s.auth.CompleteOAuth(ctx, id)
	if err != nil {
		return toStatus(err)
	}
	return stream.Send(&rpc.OAuthEvent{Type: rpc.OAuthAuthenticated, Session: sess})
}

func (s *AuthService) oauthFailed(stream grpc.ServerStreamingServer[rpc.OAuthEvent], provider string, err error) error {
	reason := chat.ReasonProviderRejected
	var failure *chat.AuthFailure
	if errors.As(err, &failure) {
		reason = failure.Reason
	}
	s.logger.Warn("oauth sign-in failed", zap.String("provider", provider), zap.String("reason", string(reason)), zap.Error(err))
	return stream.Send(&rpc.OAuthEvent{Type: rpc.OAuthFailed, Reason: reason, Message: err.Error()})
}
