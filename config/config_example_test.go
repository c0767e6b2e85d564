package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSLATOR_CLIENT_ID", "example-id")
	t.Setenv("TRANSLATOR_CLIENT_SECRET", "example-secret")

	cfg, err := Load(LoadOptions{ConfigPath: "config.example.yaml", EnvFile: "testdata/empty.env"})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "example-id", cfg.Translator.ClientID)
	assert.Equal(t, DefaultBaseURL, cfg.Translator.BaseURL)
	assert.Equal(t, DefaultAuthURL, cfg.Translator.AuthURL)
	assert.Equal(t, 215*time.Second, cfg.Translator.SpeakTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis://localhost:6379", cfg.Token.Redis.URL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Server.MasterKey)
	assert.Equal(t, 5, cfg.Resilience.CircuitBreaker.FailureThreshold)
}
