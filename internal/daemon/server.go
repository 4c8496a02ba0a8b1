package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/parley/internal/api"
	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server manages the gRPC server lifecycle for a profile daemon.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the profile's Unix domain socket.
// Every call except the sign-in and status calls needs a bearer token.
func NewServer(
	p Params,
	cfg *config.Config,
	logger *zap.Logger,
	tokens *auth.Tokens,
	authSvc *api.AuthService,
	convSvc *api.ConversationService,
	messageSvc *api.MessageService,
	eventSvc *api.EventService,
	daemonSvc *api.DaemonService,
) (*Server, error) {
	socketPath := SocketPath(p, cfg)

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	public := rpc.PublicMethods()
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(tokens, public, logger)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(tokens, public, logger)),
	)
	rpc.RegisterAuthServer(srv, authSvc)
	rpc.RegisterConversationServer(srv, convSvc)
	rpc.RegisterMessageServer(srv, messageSvc)
	rpc.RegisterEventServer(srv, eventSvc)
	rpc.RegisterDaemonServer(srv, daemonSvc)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// SocketPath resolves where the daemon of p listens: the explicit override,
// then the configured socket, then the profile default.
func SocketPath(p Params, cfg *config.Config) string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	if cfg != nil && cfg.Server.Socket != "" {
		return cfg.Server.Socket
	}
	return profile.SocketPath(p.Profile)
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file. Open
// event streams are cut when ctx ends.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
	_ = os.Remove(s.socketPath)
}
