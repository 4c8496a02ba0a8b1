package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.parley/config.toml.
type Config struct {
	DefaultProfile string        `toml:"default_profile"`
	Server         ServerConfig  `toml:"server"`
	Auth           AuthConfig    `toml:"auth"`
	Sync           SyncConfig    `toml:"sync"`
	OAuth          []OAuthConfig `toml:"oauth"`
}

// ServerConfig controls where the daemon listens.
type ServerConfig struct {
	Socket string `toml:"socket"`
}

// AuthConfig controls session tokens and login throttling.
type AuthConfig struct {
	JWTSecret              string   `toml:"jwt_secret"`
	TokenTTL               Duration `toml:"token_ttl"`
	LoginAttemptsPerMinute int      `toml:"login_attempts_per_minute"`
}

// SyncConfig tunes the client reconciler and the daemon's event streams.
type SyncConfig struct {
	SeenRetention Duration `toml:"seen_retention"`
	SeenBuffer    int      `toml:"seen_buffer"`
	StreamBuffer  int      `toml:"stream_buffer"`
}

// OAuthConfig describes one device-flow provider.
type OAuthConfig struct {
	ID            string   `toml:"id"`
	ClientID      string   `toml:"client_id"`
	ClientSecret  string   `toml:"client_secret"`
	DeviceAuthURL string   `toml:"device_auth_url"`
	TokenURL      string   `toml:"token_url"`
	UserInfoURL   string   `toml:"userinfo_url"`
	Scopes        []string `toml:"scopes"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		Auth: AuthConfig{
			TokenTTL:               Duration{720 * time.Hour},
			LoginAttemptsPerMinute: 10,
		},
		Sync: SyncConfig{
			SeenRetention: Duration{30 * time.Second},
			SeenBuffer:    256,
			StreamBuffer:  256,
		},
		OAuth: []OAuthConfig{{
			ID:            "github",
			DeviceAuthURL: "https://github.com/login/device/code",
			TokenURL:      "https://github.com/login/oauth/access_token",
			UserInfoURL:   "https://api.github.com/user",
			Scopes:        []string{"read:user", "user:email"},
		}},
	}
}

// Load reads config from the given path on top of Default. An [[oauth]]
// list in the file replaces the default providers. Returns nil and an error
// if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	defaults := cfg.OAuth
	cfg.OAuth = nil
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if !md.IsDefined("oauth") {
		cfg.OAuth = defaults
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Providers returns the OAuth providers that have a client id configured.
func (c *Config) Providers() []OAuthConfig {
	var out []OAuthConfig
	for _, p := range c.OAuth {
		if p.ID != "" && p.ClientID != "" {
			out = append(out, p)
		}
	}
	return out
}
