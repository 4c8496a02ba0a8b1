// Package profile locates the on-disk state of a named parley profile.
package profile

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "PARLEY_HOME"

// BaseDir returns $PARLEY_HOME or ~/.parley.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the daemon's unix socket path for a profile.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// DBPath returns the daemon's SQLite database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "parley.db")
}

// SecretPath returns the file holding the generated token signing secret.
func SecretPath(name string) string {
	return filepath.Join(Dir(name), "jwt.secret")
}

// TokenPath returns the client's cached session token.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// DaemonLogPath returns the daemon log file path.
func DaemonLogPath(name string) string {
	return filepath.Join(LogDir(name), "parleyd.log")
}

// ClientLogPath returns the log file shared by parleyctl and parleytui.
func ClientLogPath(name string) string {
	return filepath.Join(LogDir(name), "client.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
