package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/daemon"
	"github.com/matheus3301/parley/internal/logging"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const callTimeout = 10 * time.Second

var (
	profileFlag string
	jsonOut     bool
	startFlag   bool
)

func main() {
	root := &cobra.Command{
		Use:           "parleyctl",
		Short:         "Scriptable client for the parley daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "profile name (overrides config default)")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&startFlag, "start", false, "start the daemon if it is not running")

	root.AddCommand(statusCmd())
	root.AddCommand(registerCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(oauthCmd())
	root.AddCommand(logoutCmd())
	root.AddCommand(whoamiCmd())
	root.AddCommand(usersCmd())
	root.AddCommand(chatsCmd())
	root.AddCommand(showCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(newCmd())
	root.AddCommand(groupCmd())
	root.AddCommand(deleteCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

// env is the per-invocation connection to the profile's daemon.
type env struct {
	profile string
	client  *client.Client
	logger  *zap.Logger
}

func connect() (*env, error) {
	name, err := profile.Select(profileFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewWithOptions(profile.ClientLogPath(name), name, logging.Options{Level: zapcore.InfoLevel})
	if err != nil {
		return nil, err
	}

	socketPath := daemon.SocketPath(daemon.Params{Profile: name}, cfg)
	if startFlag {
		if err := client.EnsureDaemon(name, socketPath, 10*time.Second, logger); err != nil {
			return nil, err
		}
	}
	c, err := client.Dial(socketPath, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	if token, err := profile.LoadToken(name); err == nil && token != "" {
		c.SetToken(token)
	}
	return &env{profile: name, client: c, logger: logger}, nil
}

func (e *env) Close() {
	_ = e.client.Close()
	_ = e.logger.Sync()
}

// session resumes the cached token and returns the signed-in user.
func (e *env) session(ctx context.Context) (*chat.Session, error) {
	token := e.client.Token()
	if token == "" {
		return nil, fmt.Errorf("not signed in to profile %q, run parleyctl login", e.profile)
	}
	s, err := e.client.Resume(ctx, token)
	if err != nil {
		_ = profile.ClearToken(e.profile)
		return nil, fmt.Errorf("session expired, sign in again: %w", err)
	}
	return s, nil
}

// remember caches the token of a fresh sign-in.
func (e *env) remember(s *chat.Session) error {
	if err := profile.SaveToken(e.profile, s.Token); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	e.logger.Info("signed in", zap.String("user", s.UserID))
	return nil
}

// run connects, runs fn with a bounded context and closes the connection.
func run(timeout time.Duration, fn func(ctx context.Context, e *env) error) error {
	e, err := connect()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, e)
}
