package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/daemon"
	"github.com/matheus3301/parley/internal/logging"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/sync"
	"github.com/matheus3301/parley/internal/tui"
	"github.com/matheus3301/parley/internal/tui/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	name, err := profile.Select(*profileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to the file.
	logger, err := logging.NewWithOptions(profile.ClientLogPath(name), name, logging.Options{Level: zapcore.InfoLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	socketPath := daemon.SocketPath(daemon.Params{Profile: name}, cfg)
	if err := client.EnsureDaemon(name, socketPath, 10*time.Second, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c, err := client.Dial(socketPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	settings := sync.Settings{
		SeenRetention: cfg.Sync.SeenRetention.Duration,
		SeenBuffer:    cfg.Sync.SeenBuffer,
	}
	vm := model.NewViewModel(c, model.ProfileTokens(name), settings, logger)
	app := tui.NewApp(vm, name, logger)
	c.OnVerification(func(v client.Verification) {
		app.ShowVerification(v.Provider, v.URI, v.UserCode, v.ExpiresAt)
	})

	if err := app.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
