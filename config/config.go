// Package config provides configuration management for the translator client.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the remote service
const (
	DefaultBaseURL  = "http://api.microsofttranslator.com/"
	DefaultAuthURL  = "https://datamarket.accesscontrol.windows.net/v2/OAuth2-13/"
	DefaultCacheDir = "./cache/"
)

// Config holds the application configuration
type Config struct {
	Translator TranslatorConfig `yaml:"translator"`
	Cache      CacheConfig      `yaml:"cache"`
	Token      TokenConfig      `yaml:"token"`
	HTTP       HTTPConfig       `yaml:"http"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// TranslatorConfig holds credentials and endpoints for the remote API
type TranslatorConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AppID        string `yaml:"app_id"`
	BaseURL      string `yaml:"base_url"`
	AuthURL      string `yaml:"auth_url"`
	// Scope defaults to BaseURL when empty
	Scope string `yaml:"scope"`

	RequestTimeout   time.Duration `yaml:"request_timeout"`
	SpeakTimeout     time.Duration `yaml:"speak_timeout"`
	AutoDetectSource bool          `yaml:"auto_detect_source"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	CreateDir bool   `yaml:"create_dir"`
}

// TokenConfig holds access token reuse settings
type TokenConfig struct {
	// Reuse keeps tokens until shortly before expiry. False acquires a token per call.
	Reuse bool `yaml:"reuse"`
	// Store is "memory" or "redis"
	Store string           `yaml:"store"`
	Redis RedisTokenConfig `yaml:"redis"`
}

// RedisTokenConfig holds the redis token store settings
type RedisTokenConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// HTTPConfig holds outgoing HTTP client settings
type HTTPConfig struct {
	Timeout               time.Duration `yaml:"timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	InsecureSkipVerify    bool          `yaml:"insecure_skip_verify"`
}

// ResilienceConfig holds fault tolerance settings
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds the transport circuit breaker settings
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP front end configuration
type ServerConfig struct {
	Port      string `yaml:"port"`
	MasterKey string `yaml:"master_key"` // Optional: Master key for authentication
}

// MetricsConfig holds observability configuration for Prometheus metrics
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigPath is an explicit YAML file. When empty, config.yaml and
	// config/config.yaml are tried in order and a missing file is not an error.
	ConfigPath string
	// EnvFile is an explicit .env file. When empty, ./.env is loaded if present.
	EnvFile string
}

var defaultConfigPaths = []string{"config.yaml", "config/config.yaml"}

// buildDefaultConfig returns the configuration used when nothing is set
func buildDefaultConfig() *Config {
	return &Config{
		Translator: TranslatorConfig{
			BaseURL:        DefaultBaseURL,
			AuthURL:        DefaultAuthURL,
			RequestTimeout: 30 * time.Second,
			SpeakTimeout:   215 * time.Second,
		},
		Cache: CacheConfig{
			Dir: DefaultCacheDir,
		},
		Token: TokenConfig{
			Reuse: true,
			Store: "memory",
			Redis: RedisTokenConfig{
				KeyPrefix: "gotranslator:token:",
			},
		},
		HTTP: HTTPConfig{
			ResponseHeaderTimeout: 215 * time.Second,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Log: LogConfig{
			Format: "auto",
			Level:  "info",
		},
	}
}

// Load reads configuration in order: defaults, .env, YAML (with ${VAR} expansion),
// then environment overrides.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := buildDefaultConfig()

	path, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		expanded := expandString(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Debug("loaded config file", "path", path)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} with environment values.
// ${VAR} without a default is left untouched when VAR is unset or empty.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides applies environment variables on top of file configuration
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = b
	}
	setDuration := func(key string, dst *time.Duration) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	setString("TRANSLATOR_CLIENT_ID", &cfg.Translator.ClientID)
	setString("TRANSLATOR_CLIENT_SECRET", &cfg.Translator.ClientSecret)
	setString("TRANSLATOR_APP_ID", &cfg.Translator.AppID)
	setString("TRANSLATOR_BASE_URL", &cfg.Translator.BaseURL)
	setString("TRANSLATOR_AUTH_URL", &cfg.Translator.AuthURL)

	setBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	setString("CACHE_DIR", &cfg.Cache.Dir)
	setBool("CACHE_CREATE_DIR", &cfg.Cache.CreateDir)

	setBool("TOKEN_REUSE", &cfg.Token.Reuse)
	setString("TOKEN_STORE", &cfg.Token.Store)
	setString("REDIS_URL", &cfg.Token.Redis.URL)

	setDuration("HTTP_TIMEOUT", &cfg.HTTP.Timeout)
	setDuration("HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout)
	setBool("HTTP_INSECURE_SKIP_VERIFY", &cfg.HTTP.InsecureSkipVerify)

	setString("PORT", &cfg.Server.Port)
	setString("GOTRANSLATOR_MASTER_KEY", &cfg.Server.MasterKey)
	setBool("METRICS_ENABLED", &cfg.Metrics.Enabled)

	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(errs...)
}

// parseDuration accepts plain integers (seconds) or Go duration strings
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

// Validate checks that the configuration can drive the translator client
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Translator.ClientID) == "" {
		errs = append(errs, errors.New("translator.client_id is required"))
	}
	if strings.TrimSpace(c.Translator.ClientSecret) == "" {
		errs = append(errs, errors.New("translator.client_secret is required"))
	}
	if c.Translator.BaseURL == "" {
		errs = append(errs, errors.New("translator.base_url is required"))
	}
	if c.Translator.AuthURL == "" {
		errs = append(errs, errors.New("translator.auth_url is required"))
	}
	if c.Translator.RequestTimeout <= 0 {
		errs = append(errs, errors.New("translator.request_timeout must be positive"))
	}
	if c.Translator.SpeakTimeout <= 0 {
		errs = append(errs, errors.New("translator.speak_timeout must be positive"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when cache.enabled is true"))
	}
	switch c.Token.Store {
	case "", "memory":
	case "redis":
		if c.Token.Redis.URL == "" {
			errs = append(errs, errors.New("token.redis.url is required when token.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("token.store must be memory or redis, got %q", c.Token.Store))
	}
	if c.Resilience.CircuitBreaker.Enabled && c.Resilience.CircuitBreaker.FailureThreshold <= 0 {
		errs = append(errs, errors.New("resilience.circuit_breaker.failure_threshold must be positive"))
	}

	return errors.Join(errs...)
}

// EffectiveScope returns the OAuth scope, defaulting to the API base URL
func (t TranslatorConfig) EffectiveScope() string {
	if t.Scope != "" {
		return t.Scope
	}
	return t.BaseURL
}
