package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DaemonBinary is the executable EnsureDaemon starts.
const DaemonBinary = "parleyd"

// Alive reports whether a daemon answers a status call on socketPath.
func Alive(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := Dial(socketPath, nil)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

// EnsureDaemon starts the daemon of profile when nothing answers on
// socketPath and waits up to timeout for it to come up.
func EnsureDaemon(profile, socketPath string, timeout time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if Alive(socketPath) {
		return nil
	}
	logger.Info("daemon not running, starting", zap.String("profile", profile))
	if err := startDaemon(profile); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Alive(socketPath) {
			logger.Info("daemon ready", zap.String("socket", socketPath))
			return nil
		}
		time.Sleep(300 * time.Millisecond)
	}
	return fmt.Errorf("daemon for profile %q did not become ready within %s", profile, timeout)
}

// startDaemon runs the daemon binary found next to the current executable,
// falling back to $PATH.
func startDaemon(profile string) error {
	bin := DaemonBinary
	if exe, err := os.Executable(); err == nil {
		if sibling := filepath.Join(filepath.Dir(exe), DaemonBinary); fileExists(sibling) {
			bin = sibling
		}
	}
	cmd := exec.Command(bin, "--profile", profile)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
