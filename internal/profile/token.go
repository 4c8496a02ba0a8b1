package profile

import (
	"errors"
	"os"
	"strings"
)

// SaveToken caches a session token for Resume. The file is private to the user.
func SaveToken(name, token string) error {
	if err := EnsureDir(name); err != nil {
		return err
	}
	return os.WriteFile(TokenPath(name), []byte(token+"\n"), 0600)
}

// LoadToken returns the cached token, or "" when none is cached.
func LoadToken(name string) (string, error) {
	data, err := os.ReadFile(TokenPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ClearToken removes the cached token. A missing file is not an error.
func ClearToken(name string) error {
	err := os.Remove(TokenPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
