// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the translator client and its HTTP front end.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"gotranslator/config"
	"gotranslator/internal/auth"
	"gotranslator/internal/cache"
	"gotranslator/internal/httpclient"
	"gotranslator/internal/observability"
	"gotranslator/internal/server"
	"gotranslator/internal/translator"
	"gotranslator/internal/transport"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config     *config.Config
	tokenStore auth.TokenStore
	tokens     *auth.Provider
	api        *transport.Client
	translator *translator.Client
	server     *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized and registers its
// translator as the process default. The caller must call Shutdown to release resources.
func New(_ context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{
		config: cfg,
	}

	httpCfg := httpclient.DefaultConfig()
	if cfg.HTTP.Timeout > 0 {
		httpCfg.Timeout = cfg.HTTP.Timeout
	}
	if cfg.HTTP.ResponseHeaderTimeout > 0 {
		httpCfg.ResponseHeaderTimeout = cfg.HTTP.ResponseHeaderTimeout
	}
	httpCfg.InsecureSkipVerify = cfg.HTTP.InsecureSkipVerify
	httpClient := httpclient.NewHTTPClient(&httpCfg)

	tokenStore, err := newTokenStore(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}
	app.tokenStore = tokenStore

	app.tokens = auth.NewProvider(httpClient, auth.Config{
		ClientID:     cfg.Translator.ClientID,
		ClientSecret: cfg.Translator.ClientSecret,
		AuthURL:      cfg.Translator.AuthURL,
		Scope:        cfg.Translator.EffectiveScope(),
		Reuse:        cfg.Token.Reuse,
	}, tokenStore)

	transportCfg := transport.Config{
		BaseURL: cfg.Translator.BaseURL,
	}
	if cfg.Metrics.Enabled {
		transportCfg.Hooks = observability.NewPrometheusHooks()
	}
	if cb := cfg.Resilience.CircuitBreaker; cb.Enabled {
		transportCfg.CircuitBreaker = &transport.CircuitBreakerConfig{
			FailureThreshold: cb.FailureThreshold,
			Timeout:          cb.Timeout,
		}
	}
	app.api = transport.NewWithHTTPClient(httpClient, transportCfg, app.tokens)

	// A nil interface disables caching; a typed nil pointer would not.
	var store cache.Store
	if cfg.Cache.Enabled {
		fileStore, err := cache.NewFileStore(cfg.Cache.Dir, cfg.Cache.CreateDir)
		if err != nil {
			closeErr := app.tokenStore.Close()
			return nil, errors.Join(fmt.Errorf("failed to initialize cache: %w", err), closeErr)
		}
		store = fileStore
	}

	app.translator = translator.New(app.api, store, translator.Config{
		AppID:            cfg.Translator.AppID,
		RequestTimeout:   cfg.Translator.RequestTimeout,
		SpeakTimeout:     cfg.Translator.SpeakTimeout,
		AutoDetectSource: cfg.Translator.AutoDetectSource,
	})
	translator.SetDefault(app.translator)

	app.server = server.New(app.translator, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
	})

	app.logStartupInfo()

	return app, nil
}

func newTokenStore(cfg config.TokenConfig) (auth.TokenStore, error) {
	switch cfg.Store {
	case "redis":
		return auth.NewRedisStore(auth.RedisConfig{
			URL:       cfg.Redis.URL,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	default:
		return auth.NewMemoryStore(), nil
	}
}

// Translator returns the configured translation client.
func (a *App) Translator() *translator.Client {
	return a.translator
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.config
}

// Handler returns the HTTP front end as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	a.logServerSecurity()
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, honoring ctx, then the token store.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every close step and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.tokenStore != nil {
		if err := a.tokenStore.Close(); err != nil {
			slog.Error("token store close error", "error", err)
			errs = append(errs, fmt.Errorf("token store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// Close releases resources without a server deadline. Used by one-shot CLI commands.
func (a *App) Close() error {
	return a.Shutdown(context.Background())
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	slog.Info("translator configured",
		"base_url", cfg.Translator.BaseURL,
		"auth_url", cfg.Translator.AuthURL,
		"auto_detect_source", cfg.Translator.AutoDetectSource,
	)

	if cfg.Cache.Enabled {
		slog.Info("result cache enabled", "dir", cfg.Cache.Dir, "create_dir", cfg.Cache.CreateDir)
	} else {
		slog.Info("result cache disabled")
	}

	if cfg.Token.Reuse {
		slog.Info("token reuse enabled", "store", cfg.Token.Store)
	} else {
		slog.Info("token reuse disabled, acquiring a token per call")
	}

	if cfg.Resilience.CircuitBreaker.Enabled {
		slog.Info("circuit breaker enabled",
			"failure_threshold", cfg.Resilience.CircuitBreaker.FailureThreshold,
			"timeout", cfg.Resilience.CircuitBreaker.Timeout,
		)
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}
}

// logServerSecurity warns when the HTTP front end runs without a master key.
func (a *App) logServerSecurity() {
	if a.config.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: GOTRANSLATOR_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set GOTRANSLATOR_MASTER_KEY environment variable to secure this server")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}
}
