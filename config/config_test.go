package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml or .env is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRANSLATOR_CLIENT_ID", "TRANSLATOR_CLIENT_SECRET", "TRANSLATOR_APP_ID",
		"TRANSLATOR_BASE_URL", "TRANSLATOR_AUTH_URL", "CACHE_ENABLED", "CACHE_DIR",
		"CACHE_CREATE_DIR", "TOKEN_REUSE", "TOKEN_STORE", "REDIS_URL", "HTTP_TIMEOUT",
		"HTTP_RESPONSE_HEADER_TIMEOUT", "HTTP_INSECURE_SKIP_VERIFY", "PORT",
		"GOTRANSLATOR_MASTER_KEY", "METRICS_ENABLED", "LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Translator.BaseURL)
	assert.Equal(t, DefaultAuthURL, cfg.Translator.AuthURL)
	assert.Equal(t, DefaultBaseURL, cfg.Translator.EffectiveScope())
	assert.Equal(t, 30*time.Second, cfg.Translator.RequestTimeout)
	assert.Equal(t, 215*time.Second, cfg.Translator.SpeakTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultCacheDir, cfg.Cache.Dir)
	assert.True(t, cfg.Token.Reuse)
	assert.Equal(t, "memory", cfg.Token.Store)
	assert.False(t, cfg.HTTP.InsecureSkipVerify)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_YAMLWithPlaceholders(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)
	t.Setenv("TEST_CLIENT_SECRET", "s3cret")

	content := `
translator:
  client_id: "${TEST_CLIENT_ID:-my-client}"
  client_secret: "${TEST_CLIENT_SECRET}"
  request_timeout: 10s
  auto_detect_source: true
cache:
  enabled: true
  dir: "${TEST_CACHE_DIR:-/var/cache/translations}"
resilience:
  circuit_breaker:
    enabled: true
    failure_threshold: 3
`
	path := filepath.Join(dir, "translator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(LoadOptions{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "my-client", cfg.Translator.ClientID)
	assert.Equal(t, "s3cret", cfg.Translator.ClientSecret)
	assert.Equal(t, 10*time.Second, cfg.Translator.RequestTimeout)
	assert.True(t, cfg.Translator.AutoDetectSource)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/var/cache/translations", cfg.Cache.Dir)
	assert.True(t, cfg.Resilience.CircuitBreaker.Enabled)
	assert.Equal(t, 3, cfg.Resilience.CircuitBreaker.FailureThreshold)
	// untouched keys keep their defaults
	assert.Equal(t, 215*time.Second, cfg.Translator.SpeakTimeout)
}

func TestLoad_DefaultConfigPath(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte("server:\n  port: \"9191\"\n"), 0o644))

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Server.Port)
}

func TestLoad_MissingExplicitConfig(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	_, err := Load(LoadOptions{ConfigPath: "does-not-exist.yaml"})
	assert.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)
	require.NoError(t, os.Unsetenv("TRANSLATOR_CLIENT_ID"))
	require.NoError(t, os.Unsetenv("PORT"))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRANSLATOR_CLIENT_ID=from-dotenv\nPORT=7070\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("TRANSLATOR_CLIENT_ID")
		_ = os.Unsetenv("PORT")
	})

	cfg, err := Load(LoadOptions{EnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Translator.ClientID)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)
	t.Setenv("PORT", "9999")

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("PORT=7070\n"), 0o644))

	cfg, err := Load(LoadOptions{EnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestExpandString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{"empty string", "", nil, ""},
		{"string without placeholders", "simple-string", nil, "simple-string"},
		{"simple variable expansion", "${CLIENT_ID}", map[string]string{"CLIENT_ID": "abc"}, "abc"},
		{"variable in middle of string", "prefix-${CLIENT_ID}-suffix", map[string]string{"CLIENT_ID": "abc"}, "prefix-abc-suffix"},
		{"default used when missing", "${CLIENT_ID:-fallback}", nil, "fallback"},
		{"default used when empty", "${CLIENT_ID:-fallback}", map[string]string{"CLIENT_ID": ""}, "fallback"},
		{"unresolved variable kept", "${MISSING_VAR}", nil, "${MISSING_VAR}"},
		{"default with colon", "${BASE_URL:-http://api.microsofttranslator.com/}", nil, "http://api.microsofttranslator.com/"},
		{"empty default", "${GOTRANSLATOR_MASTER_KEY:-}", nil, ""},
		{"partially resolved", "${RESOLVED}-${UNRESOLVED}", map[string]string{"RESOLVED": "v"}, "v-${UNRESOLVED}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"CLIENT_ID", "MISSING_VAR", "BASE_URL", "GOTRANSLATOR_MASTER_KEY", "RESOLVED", "UNRESOLVED"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if got := expandString(tt.input); got != tt.expected {
				t.Errorf("expandString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "credentials",
			envVars: map[string]string{"TRANSLATOR_CLIENT_ID": "id", "TRANSLATOR_CLIENT_SECRET": "secret", "TRANSLATOR_APP_ID": "app"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "id", cfg.Translator.ClientID)
				assert.Equal(t, "secret", cfg.Translator.ClientSecret)
				assert.Equal(t, "app", cfg.Translator.AppID)
			},
		},
		{
			name:    "cache",
			envVars: map[string]string{"CACHE_ENABLED": "true", "CACHE_DIR": "/tmp/c", "CACHE_CREATE_DIR": "1"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Cache.Enabled)
				assert.Equal(t, "/tmp/c", cfg.Cache.Dir)
				assert.True(t, cfg.Cache.CreateDir)
			},
		},
		{
			name:    "token store",
			envVars: map[string]string{"TOKEN_REUSE": "false", "TOKEN_STORE": "redis", "REDIS_URL": "redis://localhost:6379"},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Token.Reuse)
				assert.Equal(t, "redis", cfg.Token.Store)
				assert.Equal(t, "redis://localhost:6379", cfg.Token.Redis.URL)
			},
		},
		{
			name:    "http durations",
			envVars: map[string]string{"HTTP_TIMEOUT": "45", "HTTP_RESPONSE_HEADER_TIMEOUT": "2m", "HTTP_INSECURE_SKIP_VERIFY": "true"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
				assert.Equal(t, 2*time.Minute, cfg.HTTP.ResponseHeaderTimeout)
				assert.True(t, cfg.HTTP.InsecureSkipVerify)
			},
		},
		{
			name:    "server",
			envVars: map[string]string{"PORT": "3000", "GOTRANSLATOR_MASTER_KEY": "my-secret", "METRICS_ENABLED": "true"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "3000", cfg.Server.Port)
				assert.Equal(t, "my-secret", cfg.Server.MasterKey)
				assert.True(t, cfg.Metrics.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := buildDefaultConfig()
			require.NoError(t, applyEnvOverrides(cfg))
			tt.check(t, cfg)
		})
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_ENABLED", "maybe")
	t.Setenv("HTTP_TIMEOUT", "soon")

	err := applyEnvOverrides(buildDefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_ENABLED")
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := buildDefaultConfig()
		cfg.Translator.ClientID = "id"
		cfg.Translator.ClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing client id", func(c *Config) { c.Translator.ClientID = "" }, "client_id"},
		{"missing client secret", func(c *Config) { c.Translator.ClientSecret = " " }, "client_secret"},
		{"cache without dir", func(c *Config) { c.Cache.Enabled = true; c.Cache.Dir = "" }, "cache.dir"},
		{"redis without url", func(c *Config) { c.Token.Store = "redis" }, "token.redis.url"},
		{"unknown store", func(c *Config) { c.Token.Store = "etcd" }, "token.store"},
		{"zero timeout", func(c *Config) { c.Translator.RequestTimeout = 0 }, "request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
