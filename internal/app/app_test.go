package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotranslator/config"
	"gotranslator/internal/core"
	"gotranslator/internal/translator"
)

type fakeUpstream struct {
	auth      *httptest.Server
	api       *httptest.Server
	tokenHits atomic.Int32
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.auth = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.tokenHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":"600"}`))
	}))
	f.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`<string xmlns="http://schemas.microsoft.com/2003/10/Serialization/">Salut</string>`))
	}))
	t.Cleanup(f.auth.Close)
	t.Cleanup(f.api.Close)
	return f
}

func testConfig(f *fakeUpstream) *config.Config {
	return &config.Config{
		Translator: config.TranslatorConfig{
			ClientID:       "id",
			ClientSecret:   "secret",
			BaseURL:        f.api.URL + "/",
			AuthURL:        f.auth.URL,
			RequestTimeout: 5 * time.Second,
			SpeakTimeout:   5 * time.Second,
		},
		Token: config.TokenConfig{
			Reuse: true,
			Store: "memory",
		},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "translator.client_id is required")
}

func TestNew_TranslatesEndToEnd(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := testConfig(f)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Same(t, a.Translator(), translator.Default())
	assert.Same(t, cfg, a.Config())
	assert.False(t, a.Translator().CacheEnabled())

	for range 2 {
		result, err := a.Translator().Translate(context.Background(), core.TranslationRequest{Text: "hello", From: "en", To: "fr"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "Salut", result.Text)
	}
	assert.Equal(t, int32(1), f.tokenHits.Load(), "token should be reused")
}

func TestNew_CacheEnabled(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := testConfig(f)
	cfg.Cache = config.CacheConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "cache"), CreateDir: true}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.True(t, a.Translator().CacheEnabled())

	result, err := a.Translator().Translate(context.Background(), core.TranslationRequest{Text: "hello", From: "en", To: "fr"})
	require.NoError(t, err)
	assert.False(t, result.Cached)

	result, err = a.Translator().Translate(context.Background(), core.TranslationRequest{Text: "hello", From: "en", To: "fr"})
	require.NoError(t, err)
	assert.True(t, result.Cached)
}

func TestNew_RedisTokenStore(t *testing.T) {
	f := newFakeUpstream(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(f)
	cfg.Token.Store = "redis"
	cfg.Token.Redis.URL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = a.Translator().Translate(context.Background(), core.TranslationRequest{Text: "hello", From: "en", To: "fr"})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys(), "token should be stored in redis")

	require.NoError(t, a.Close())
}

func TestNew_RedisUnavailable(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := testConfig(f)
	cfg.Token.Store = "redis"
	cfg.Token.Redis.URL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token store")
}

func TestHandler_ServesTranslations(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := testConfig(f)
	cfg.Server.MasterKey = "master"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	req := httptest.NewRequest(http.MethodGet, "/v1/translate?text=hello&from=en&to=fr", nil)
	req.Header.Set("Authorization", "Bearer master")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"text":"Salut"`)
}

func TestShutdown_Idempotent(t *testing.T) {
	f := newFakeUpstream(t)
	a, err := New(context.Background(), testConfig(f))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Shutdown(ctx))
	require.NoError(t, a.Shutdown(ctx))
}
