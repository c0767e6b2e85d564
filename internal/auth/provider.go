// Package auth obtains OAuth2 client-credentials access tokens for the translator API
// and reuses them until shortly before they expire.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"gotranslator/internal/core"
	"gotranslator/internal/httpclient"
	"gotranslator/internal/observability"
)

const (
	// DefaultRefreshSkew is how long before expiry a stored token is replaced.
	DefaultRefreshSkew = 60 * time.Second

	// DefaultExchangeTimeout bounds a shared token exchange
	DefaultExchangeTimeout = 30 * time.Second

	// defaultTokenLifetime applies when the response carries no usable expires_in.
	defaultTokenLifetime = 10 * time.Minute

	grantTypeClientCredentials = "client_credentials"
)

// Config holds the credential exchange settings
type Config struct {
	ClientID     string
	ClientSecret string
	// AuthURL is the token endpoint
	AuthURL string
	// Scope is sent as the scope form field, normally the API base URL
	Scope string
	// Reuse keeps tokens in the store until RefreshSkew before expiry.
	// When false every call performs a fresh exchange.
	Reuse       bool
	RefreshSkew time.Duration
	// ExchangeTimeout bounds a refresh shared by concurrent callers. The
	// exchange does not inherit any single caller's cancellation.
	ExchangeTimeout time.Duration
}

// Provider implements core.TokenSource
type Provider struct {
	httpClient *http.Client
	config     Config
	store      TokenStore
	group      singleflight.Group
	now        func() time.Time
}

// NewProvider creates a token provider. A nil store falls back to a MemoryStore
// and a nil httpClient to the shared default client.
func NewProvider(httpClient *http.Client, config Config, store TokenStore) *Provider {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if config.RefreshSkew <= 0 {
		config.RefreshSkew = DefaultRefreshSkew
	}
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = DefaultExchangeTimeout
	}
	return &Provider{
		httpClient: httpClient,
		config:     config,
		store:      store,
		now:        time.Now,
	}
}

// Token returns a valid access token, reusing a stored one when possible.
func (p *Provider) Token(ctx context.Context) (core.AccessToken, error) {
	if !p.config.Reuse {
		return p.AcquireToken(ctx, p.config.ClientID, p.config.ClientSecret)
	}

	key := credentialKey(p.config.ClientID, p.config.ClientSecret)

	if token, ok := p.lookup(ctx, key); ok {
		observability.RecordTokenAcquisition(observability.TokenReused)
		return token, nil
	}

	ch := p.group.DoChan(key, func() (interface{}, error) {
		// Shared by every waiter: detach from the first caller's cancellation.
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.ExchangeTimeout)
		defer cancel()

		// a concurrent refresh may have finished while we waited
		if token, ok := p.lookup(exCtx, key); ok {
			return token, nil
		}
		token, err := p.AcquireToken(exCtx, p.config.ClientID, p.config.ClientSecret)
		if err != nil {
			return nil, err
		}
		if err := p.store.Set(exCtx, key, token); err != nil {
			slog.Warn("failed to store access token", "error", err)
		}
		return token, nil
	})

	select {
	case <-ctx.Done():
		return core.AccessToken{}, core.NewTransportError("token request cancelled: "+ctx.Err().Error(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return core.AccessToken{}, res.Err
		}
		return res.Val.(core.AccessToken), nil
	}
}

// Invalidate drops the stored token so the next call performs a fresh exchange.
func (p *Provider) Invalidate(ctx context.Context) error {
	return p.store.Delete(ctx, credentialKey(p.config.ClientID, p.config.ClientSecret))
}

func (p *Provider) lookup(ctx context.Context, key string) (core.AccessToken, bool) {
	token, found, err := p.store.Get(ctx, key)
	if err != nil {
		slog.Warn("token store lookup failed", "error", err)
		return core.AccessToken{}, false
	}
	if !found || !token.ValidFor(p.now(), p.config.RefreshSkew) {
		return core.AccessToken{}, false
	}
	return token, true
}

// AcquireToken performs one client-credentials exchange against the auth endpoint.
func (p *Provider) AcquireToken(ctx context.Context, clientID, clientSecret string) (core.AccessToken, error) {
	form := url.Values{
		"grant_type":    {grantTypeClientCredentials},
		"scope":         {p.config.Scope},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		observability.RecordTokenAcquisition(observability.TokenError)
		return core.AccessToken{}, core.NewTransportError("failed to create token request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		observability.RecordTokenAcquisition(observability.TokenError)
		return core.AccessToken{}, core.NewTransportError("token request failed: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordTokenAcquisition(observability.TokenError)
		return core.AccessToken{}, core.NewTransportError("failed to read token response: "+err.Error(), err)
	}

	token, err := p.parseTokenResponse(resp.StatusCode, body)
	if err != nil {
		observability.RecordTokenAcquisition(observability.TokenError)
		return core.AccessToken{}, err
	}

	observability.RecordTokenAcquisition(observability.TokenSuccess)
	slog.Debug("access token acquired", "expires_at", token.ExpiresAt)
	return token, nil
}

func (p *Provider) parseTokenResponse(status int, body []byte) (core.AccessToken, error) {
	if !gjson.ValidBytes(body) {
		if status >= http.StatusInternalServerError {
			return core.AccessToken{}, core.NewCommunicationError("token endpoint returned "+http.StatusText(status), nil)
		}
		return core.AccessToken{}, core.NewAuthenticationError("invalid token response: " + truncate(string(body), 200))
	}

	parsed := gjson.ParseBytes(body)

	if e := parsed.Get("error"); e.Exists() && e.String() != "" {
		msg := parsed.Get("error_description").String()
		if msg == "" {
			msg = e.String()
		}
		return core.AccessToken{}, core.NewAuthenticationError(msg)
	}

	value := parsed.Get("access_token").String()
	if value == "" {
		return core.AccessToken{}, core.NewAuthenticationError("token response has no access_token")
	}

	lifetime := defaultTokenLifetime
	if secs := parsed.Get("expires_in").Int(); secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}

	return core.AccessToken{
		Value:     value,
		ExpiresAt: p.now().Add(lifetime),
	}, nil
}

// credentialKey is the store key for a credential pair
func credentialKey(clientID, clientSecret string) string {
	sum := sha256.Sum256([]byte(clientID + "\x00" + clientSecret))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
