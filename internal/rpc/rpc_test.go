package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, in *RegisterRequest) (*SessionResponse, error) {
	return &SessionResponse{Session: &chat.Session{UserID: "u1", Name: in.Name, Email: in.Email, Token: "t"}}, nil
}

func (fakeAuth) Login(context.Context, *LoginRequest) (*SessionResponse, error) {
	return nil, ToStatus(&chat.AuthFailure{Reason: chat.ReasonInvalidCredentials})
}

func (fakeAuth) Resume(context.Context, *ResumeRequest) (*SessionResponse, error) {
	return nil, ToStatus(&chat.AuthFailure{Reason: chat.ReasonRateLimited})
}

func (fakeAuth) LoginOAuth(in *LoginOAuthRequest, stream grpc.ServerStreamingServer[OAuthEvent]) error {
	if err := stream.Send(&OAuthEvent{Type: OAuthVerification, VerificationURI: "https://example.com/device", UserCode: "ABCD"}); err != nil {
		return err
	}
	return stream.Send(&OAuthEvent{Type: OAuthAuthenticated, Session: &chat.Session{UserID: "u-" + in.Provider}})
}

func (fakeAuth) Providers(context.Context, *ProvidersRequest) (*ProvidersResponse, error) {
	return &ProvidersResponse{Providers: []string{"github"}}, nil
}

type fakeEvents struct{ seenChannel chan string }

func (f fakeEvents) Watch(in *WatchRequest, stream grpc.ServerStreamingServer[chat.Event]) error {
	f.seenChannel <- in.ChannelID
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"m1", "m2"} {
		evt := &chat.Event{Type: chat.MessageCreated, Message: &chat.Message{ID: id, ConversationID: "c1", CreatedAt: created}}
		if err := stream.Send(evt); err != nil {
			return err
		}
	}
	return nil
}

func dial(t *testing.T, opts ...grpc.ServerOption) (*grpc.ClientConn, fakeEvents) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	events := fakeEvents{seenChannel: make(chan string, 1)}
	RegisterAuthServer(srv, fakeAuth{})
	RegisterEventServer(srv, events)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, events
}

func TestUnaryRoundTrip(t *testing.T) {
	conn, _ := dial(t)
	c := NewAuthClient(conn)

	resp, err := c.Register(context.Background(), &RegisterRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", resp.Session.Name)
	assert.Equal(t, "ana@example.com", resp.Session.Email)

	providers, err := c.Providers(context.Background(), &ProvidersRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"github"}, providers.Providers)
}

func TestAuthFailuresSurviveTheWire(t *testing.T) {
	conn, _ := dial(t)
	c := NewAuthClient(conn)

	_, err := c.Login(context.Background(), &LoginRequest{})
	var failure *chat.AuthFailure
	require.ErrorAs(t, FromStatus(err), &failure)
	assert.Equal(t, chat.ReasonInvalidCredentials, failure.Reason)

	_, err = c.Resume(context.Background(), &ResumeRequest{})
	require.ErrorAs(t, FromStatus(err), &failure)
	assert.Equal(t, chat.ReasonRateLimited, failure.Reason)
}

func TestServerStream(t *testing.T) {
	conn, events := dial(t)

	stream, err := NewEventClient(conn).Watch(context.Background(), &WatchRequest{ChannelID: "u1"})
	require.NoError(t, err)

	var got []string
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, chat.MessageCreated, evt.Type)
		got = append(got, evt.Message.ID)
	}
	assert.Equal(t, []string{"m1", "m2"}, got)
	assert.Equal(t, "u1", <-events.seenChannel)

	oauth, err := NewAuthClient(conn).LoginOAuth(context.Background(), &LoginOAuthRequest{Provider: "github"})
	require.NoError(t, err)
	first, err := oauth.Recv()
	require.NoError(t, err)
	assert.Equal(t, OAuthVerification, first.Type)
	assert.Equal(t, "ABCD", first.UserCode)
	second, err := oauth.Recv()
	require.NoError(t, err)
	assert.Equal(t, "u-github", second.Session.UserID)
}

func TestInterceptorsSeeFullMethodNames(t *testing.T) {
	var unaryMethods, streamMethods []string
	conn, _ := dial(t,
		grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			unaryMethods = append(unaryMethods, info.FullMethod)
			return handler(ctx, req)
		}),
		grpc.StreamInterceptor(func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			streamMethods = append(streamMethods, info.FullMethod)
			return handler(srv, ss)
		}),
	)

	_, err := NewAuthClient(conn).Providers(context.Background(), &ProvidersRequest{})
	require.NoError(t, err)
	stream, err := NewEventClient(conn).Watch(context.Background(), &WatchRequest{})
	require.NoError(t, err)
	for {
		if _, err := stream.Recv(); err != nil {
			break
		}
	}

	assert.Equal(t, []string{AuthProviders}, unaryMethods)
	assert.Equal(t, []string{EventWatch}, streamMethods)
	assert.True(t, PublicMethods()[AuthProviders])
	assert.False(t, PublicMethods()[EventWatch])
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", chat.ErrNotFound, codes.NotFound},
		{"conflict", &chat.ConflictError{}, codes.AlreadyExists},
		{"invalid participants", chat.ErrInvalidParticipants, codes.InvalidArgument},
		{"transport", chat.ErrTransportUnavailable, codes.Unavailable},
		{"provider down", &chat.AuthFailure{Reason: chat.ReasonProviderUnavailable}, codes.Unavailable},
		{"rejected", &chat.AuthFailure{Reason: chat.ReasonProviderRejected}, codes.Unauthenticated},
		{"other", errors.New("disk full"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)))
		})
	}

	assert.NoError(t, ToStatus(nil))
	assert.ErrorIs(t, FromStatus(ToStatus(chat.ErrNotFound)), chat.ErrNotFound)
	assert.ErrorIs(t, FromStatus(ToStatus(chat.ErrTransportUnavailable)), chat.ErrTransportUnavailable)
	assert.ErrorIs(t, FromStatus(ToStatus(&chat.ConflictError{})), chat.ErrConflictExisting)

	var failure *chat.AuthFailure
	require.ErrorAs(t, FromStatus(ToStatus(&chat.AuthFailure{Reason: chat.ReasonProviderUnavailable})), &failure)
	assert.Equal(t, chat.ReasonProviderUnavailable, failure.Reason)
}
