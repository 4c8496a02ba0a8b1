package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/matheus3301/parley/internal/api"
	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/logging"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string         // optional override for testing; empty = config or default
	Config     *config.Config // optional; nil = load ~/.parley/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideTokens,
			provideOAuth,
			provideAuthenticator,
			provideAuthService,
			provideConversationService,
			provideMessageService,
			provideEventService,
			provideDaemonService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.DaemonLogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile), p.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so that only the lock holder opens the database.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTokens(p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*auth.Tokens, error) {
	secret, err := loadSecret(cfg.Auth.JWTSecret, profile.SecretPath(p.Profile), logger)
	if err != nil {
		return nil, err
	}
	return auth.NewTokens(secret, cfg.Auth.TokenTTL.Duration), nil
}

func provideOAuth(cfg *config.Config) *auth.OAuth {
	var providers []auth.ProviderConfig
	for _, o := range cfg.Providers() {
		providers = append(providers, auth.ProviderConfig{
			ID:            o.ID,
			ClientID:      o.ClientID,
			ClientSecret:  o.ClientSecret,
			DeviceAuthURL: o.DeviceAuthURL,
			TokenURL:      o.TokenURL,
			UserInfoURL:   o.UserInfoURL,
			Scopes:        o.Scopes,
		})
	}
	return auth.NewOAuth(providers, &http.Client{Timeout: 30 * time.Second})
}

func provideAuthenticator(db *store.DB, tokens *auth.Tokens, oauth *auth.OAuth, cfg *config.Config, logger *zap.Logger) *auth.Authenticator {
	limiter := auth.NewLimiter(cfg.Auth.LoginAttemptsPerMinute)
	return auth.NewAuthenticator(db, tokens, limiter, oauth, logger.Named("auth"))
}

func provideAuthService(a *auth.Authenticator, logger *zap.Logger) *api.AuthService {
	return api.NewAuthService(a, logger.Named("api.auth"))
}

func provideConversationService(db *store.DB, b *bus.Bus, logger *zap.Logger) *api.ConversationService {
	return api.NewConversationService(db, b, logger.Named("api.conversations"))
}

func provideMessageService(db *store.DB, b *bus.Bus, logger *zap.Logger) *api.MessageService {
	return api.NewMessageService(db, b, logger.Named("api.messages"))
}

func provideEventService(b *bus.Bus, cfg *config.Config, logger *zap.Logger) *api.EventService {
	return api.NewEventService(b, cfg.Sync.StreamBuffer, logger.Named("api.events"))
}

func provideDaemonService(p Params, db *store.DB, a *auth.Authenticator) *api.DaemonService {
	return api.NewDaemonService(p.Profile, db, a)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if n := b.Dropped(); n > 0 {
				logger.Warn("events dropped for slow subscribers", zap.Uint64("count", n))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
