package profile

import (
	"errors"
	"fmt"
	"os"

	"github.com/matheus3301/parley/internal/config"
)

// DefaultName is the profile used when nothing selects another.
const DefaultName = "main"

// NameEnv selects a profile when no --profile flag is given.
const NameEnv = "PARLEY_PROFILE"

const maxNameLen = 64

// ErrInvalidName is returned for names that cannot be used as a profile directory.
var ErrInvalidName = errors.New("invalid profile name")

// Select returns the active profile. The first source that names one wins:
// the --profile flag, $PARLEY_PROFILE, default_profile in config.toml, then
// DefaultName. An invalid name is reported together with its source.
func Select(flagValue string) (string, error) {
	name, source := pick(flagValue)
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%s: %w", source, err)
	}
	return name, nil
}

func pick(flagValue string) (name, source string) {
	if flagValue != "" {
		return flagValue, "--profile"
	}
	if v := os.Getenv(NameEnv); v != "" {
		return v, "$" + NameEnv
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile, "default_profile in " + ConfigPath()
	}
	return DefaultName, "default profile"
}

// ValidateName accepts 1 to 64 lowercase letters, digits, '-' or '_'.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w %q: length must be 1 to %d", ErrInvalidName, name, maxNameLen)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w %q: %q not allowed, use a-z 0-9 - _", ErrInvalidName, name, r)
		}
	}
	return nil
}
