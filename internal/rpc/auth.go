package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const AuthServiceName = "parley.v1.AuthService"

// Full method names, used by the auth interceptors' public list.
var (
	AuthRegister   = fullMethod(AuthServiceName, "Register")
	AuthLogin      = fullMethod(AuthServiceName, "Login")
	AuthResume     = fullMethod(AuthServiceName, "Resume")
	AuthLoginOAuth = fullMethod(AuthServiceName, "LoginOAuth")
	AuthProviders  = fullMethod(AuthServiceName, "Providers")
)

// AuthServer is the server API for AuthService.
type AuthServer interface {
	Register(context.Context, *RegisterRequest) (*SessionResponse, error)
	Login(context.Context, *LoginRequest) (*SessionResponse, error)
	Resume(context.Context, *ResumeRequest) (*SessionResponse, error)
	LoginOAuth(*LoginOAuthRequest, grpc.ServerStreamingServer[OAuthEvent]) error
	Providers(context.Context, *ProvidersRequest) (*ProvidersResponse, error)
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AuthServiceName, "Register", AuthServer.Register),
		unary(AuthServiceName, "Login", AuthServer.Login),
		unary(AuthServiceName, "Resume", AuthServer.Resume),
		unary(AuthServiceName, "Providers", AuthServer.Providers),
	},
	Streams: []grpc.StreamDesc{
		serverStream("LoginOAuth", AuthServer.LoginOAuth),
	},
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthClient is the client API for AuthService.
type AuthClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{cc: cc}
}

func (c *AuthClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, AuthRegister, in, opts)
}

func (c *AuthClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, AuthLogin, in, opts)
}

func (c *AuthClient) Resume(ctx context.Context, in *ResumeRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, AuthResume, in, opts)
}

func (c *AuthClient) Providers(ctx context.Context, in *ProvidersRequest, opts ...grpc.CallOption) (*ProvidersResponse, error) {
	return invoke[ProvidersResponse](ctx, c.cc, AuthProviders, in, opts)
}

func (c *AuthClient) LoginOAuth(ctx context.Context, in *LoginOAuthRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[OAuthEvent], error) {
	return openStream[LoginOAuthRequest, OAuthEvent](ctx, c.cc, &AuthServiceDesc.Streams[0], AuthLoginOAuth, in, opts)
}
