// Package translator implements the translation client: translate, detect,
// sentence breaking, language listings and speech, on top of the
// authenticated transport and the optional result cache.
package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gotranslator/internal/cache"
	"gotranslator/internal/core"
	"gotranslator/internal/observability"
	"gotranslator/internal/transport"
)

// API endpoints, relative to the base URL
const (
	EndpointTranslate          = "v2/Http.svc/Translate"
	EndpointDetect             = "v2/Http.svc/Detect"
	EndpointBreakSentences     = "v2/Http.svc/BreakSentences"
	EndpointLanguageNames      = "v1/Http.svc/GetLanguageNames"
	EndpointLanguagesSupported = "v2/Http.svc/GetLanguagesForTranslate"
	EndpointSpeak              = "v2/Http.svc/Speak"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultSpeakTimeout   = 215 * time.Second
)

// ErrSelfTestFailed is returned by SelfTest when the known translation does not match.
var ErrSelfTestFailed = errors.New("translation self test failed")

// API is the transport used by the client
type API interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
	Stream(ctx context.Context, req transport.Request) (*transport.StreamResponse, error)
}

// Config holds translator behaviour settings
type Config struct {
	// AppID is sent as the appId query parameter (may be empty)
	AppID string
	// RequestTimeout bounds each operation, token round trip included
	RequestTimeout time.Duration
	// SpeakTimeout bounds speech synthesis calls
	SpeakTimeout time.Duration
	// AutoDetectSource detects the source language when From is empty
	AutoDetectSource bool
}

// Client is immutable after construction and safe for concurrent use.
type Client struct {
	api    API
	store  cache.Store
	config Config
}

var _ core.Translator = (*Client)(nil)

// New creates a translation client. store may be nil to disable result caching.
func New(api API, store cache.Store, config Config) *Client {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.SpeakTimeout <= 0 {
		config.SpeakTimeout = DefaultSpeakTimeout
	}
	return &Client{
		api:    api,
		store:  store,
		config: config,
	}
}

// CacheEnabled reports whether translations are cached
func (c *Client) CacheEnabled() bool {
	return c.store != nil
}

// Translate translates req.Text. Validation and service failures are reported in
// the result; transport, authentication, communication and storage failures are
// returned as errors. A failed cache write returns the successful result together
// with the storage error.
func (c *Client) Translate(ctx context.Context, req core.TranslationRequest) (*core.TranslationResult, error) {
	return c.translate(ctx, req, c.store)
}

func (c *Client) translate(ctx context.Context, req core.TranslationRequest, store cache.Store) (*core.TranslationResult, error) {
	result := &core.TranslationResult{From: req.From, To: req.To}

	switch {
	case req.Text == "":
		result.Failure = core.NewValidationError("text is required")
		return result, nil
	case req.To == "":
		result.Failure = core.NewValidationError("target language is required")
		return result, nil
	case req.From == "" && !c.config.AutoDetectSource:
		result.Failure = core.NewValidationError("source language is required")
		return result, nil
	}

	// One deadline covers detection, the token and the translation round trip.
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	if req.From == "" {
		detected, err := c.DetectLanguage(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		if !detected.Success {
			result.Failure = detected.Failure
			return result, nil
		}
		req.From = detected.Language
		result.From = detected.Language
		result.DetectedSourceLanguage = detected.Language
	}

	digest := cache.CompositeKey(req.Text, req.From, req.To)

	if store != nil {
		text, found, err := store.Get(ctx, digest)
		if err != nil {
			observability.RecordCacheLookup(observability.CacheError)
			return nil, err
		}
		if found {
			observability.RecordCacheLookup(observability.CacheHit)
			slog.Debug("translation cache hit", "from", req.From, "to", req.To)
			result.Text = text
			result.Success = true
			result.Cached = true
			return result, nil
		}
		observability.RecordCacheLookup(observability.CacheMiss)
	}

	body, failure, err := c.call(ctx, EndpointTranslate, url.Values{
		"appId": {c.config.AppID},
		"text":  {req.Text},
		"from":  {req.From},
		"to":    {req.To},
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		result.Failure = failure
		return result, nil
	}

	text, err := parseStringElement(body)
	if err != nil {
		return nil, err
	}
	result.Text = text
	result.Success = true

	if store != nil {
		if err := store.Set(ctx, digest, text); err != nil {
			slog.Warn("failed to cache translation", "error", err)
			return result, err
		}
	}

	return result, nil
}

// DetectLanguage returns the language code of text
func (c *Client) DetectLanguage(ctx context.Context, text string) (*core.DetectionResult, error) {
	result := &core.DetectionResult{}
	if text == "" {
		result.Failure = core.NewValidationError("text is required")
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	body, failure, err := c.call(ctx, EndpointDetect, url.Values{
		"appId": {c.config.AppID},
		"text":  {text},
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		result.Failure = failure
		return result, nil
	}

	lang, err := parseStringElement(body)
	if err != nil {
		return nil, err
	}
	result.Language = strings.TrimSpace(lang)
	result.Success = true
	return result, nil
}

// BreakSentences returns the length of each sentence of text, in order
func (c *Client) BreakSentences(ctx context.Context, text, lang string) (*core.SentenceBreakResult, error) {
	result := &core.SentenceBreakResult{}
	switch {
	case text == "":
		result.Failure = core.NewValidationError("text is required")
		return result, nil
	case lang == "":
		result.Failure = core.NewValidationError("language is required")
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	body, failure, err := c.call(ctx, EndpointBreakSentences, url.Values{
		"appId":    {c.config.AppID},
		"text":     {text},
		"language": {lang},
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		result.Failure = failure
		return result, nil
	}

	lengths, err := parseIntArray(body)
	if err != nil {
		return nil, err
	}
	result.Lengths = lengths
	result.Success = true
	return result, nil
}

// LanguageNames returns the raw language names document localized to locale
func (c *Client) LanguageNames(ctx context.Context, locale string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	return c.fetch(ctx, EndpointLanguageNames, url.Values{
		"appId":  {c.config.AppID},
		"locale": {locale},
	})
}

// LanguagesSupported returns the language codes available for translation
func (c *Client) LanguagesSupported(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	body, err := c.fetch(ctx, EndpointLanguagesSupported, url.Values{
		"appId": {c.config.AppID},
	})
	if err != nil {
		return nil, err
	}
	return parseStringArray(body)
}

// Speak returns the synthesized audio for req
func (c *Client) Speak(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	if err := validateSpeech(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.SpeakTimeout)
	defer cancel()

	return c.fetch(ctx, EndpointSpeak, speechQuery(c.config.AppID, req))
}

// SpeakTo streams the synthesized audio for req into w and returns the byte count
func (c *Client) SpeakTo(ctx context.Context, req core.SpeechRequest, w io.Writer) (int64, error) {
	if err := validateSpeech(req); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.SpeakTimeout)
	defer cancel()

	resp, err := c.api.Stream(ctx, transport.Request{
		Method:   http.MethodGet,
		Endpoint: EndpointSpeak,
		Query:    speechQuery(c.config.AppID, req),
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_, failure, err := classify(resp.StatusCode, body)
		if err != nil {
			return 0, err
		}
		return 0, failure
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, core.NewTransportError("failed to read audio stream: "+err.Error(), err)
	}
	if n == 0 {
		return 0, core.NewCommunicationError("empty response from translator API", nil)
	}
	return n, nil
}

// SpeakToFile streams the synthesized audio for req into filename.
// The file is removed when the call fails.
func (c *Client) SpeakToFile(ctx context.Context, req core.SpeechRequest, filename string) (int64, error) {
	if err := validateSpeech(req); err != nil {
		return 0, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return 0, core.NewStorageError("failed to create audio file: "+err.Error(), err)
	}

	n, err := c.SpeakTo(ctx, req, f)
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = core.NewStorageError("failed to write audio file: "+closeErr.Error(), closeErr)
	}
	if err != nil {
		_ = os.Remove(filename)
		return 0, err
	}
	return n, nil
}

// SelfTest translates "hello" from English to French with caching bypassed
// and expects "Salut".
func (c *Client) SelfTest(ctx context.Context) error {
	result, err := c.translate(ctx, core.TranslationRequest{Text: "hello", From: "en", To: "fr"}, nil)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: %v", ErrSelfTestFailed, result.Failure)
	}
	if result.Text != "Salut" {
		return fmt.Errorf("%w: expected %q, got %q", ErrSelfTestFailed, "Salut", result.Text)
	}
	return nil
}

// call performs one GET and classifies the response. failure carries service
// errors for the result-bearing operations; err carries everything else.
func (c *Client) call(ctx context.Context, endpoint string, query url.Values) ([]byte, *core.Error, error) {
	resp, err := c.api.Do(ctx, transport.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Query:    query,
	})
	if err != nil {
		return nil, nil, err
	}
	return classify(resp.StatusCode, resp.Body)
}

// fetch is call for operations without a result value: service failures become errors.
func (c *Client) fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	body, failure, err := c.call(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return body, nil
}

func classify(status int, body []byte) ([]byte, *core.Error, error) {
	if msg, ok := parseArgumentException(body); ok {
		failure := core.NewServiceError(msg)
		if status >= 400 {
			failure.StatusCode = status
		}
		return nil, failure, nil
	}

	if status < 200 || status > 299 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200] + "..."
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, nil, core.NewAuthenticationError(fmt.Sprintf("translator API rejected credentials (%d): %s", status, detail))
		}
		return nil, core.NewServiceError(fmt.Sprintf("translator API returned status %d: %s", status, detail)), nil
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil, core.NewCommunicationError("empty response from translator API", nil)
	}

	return body, nil, nil
}

func validateSpeech(req core.SpeechRequest) error {
	if req.Text == "" {
		return core.NewValidationError("text is required")
	}
	if req.Language == "" {
		return core.NewValidationError("language is required")
	}
	return nil
}

func speechQuery(appID string, req core.SpeechRequest) url.Values {
	q := url.Values{
		"appId":    {appID},
		"text":     {req.Text},
		"language": {req.Language},
	}
	if req.Format != "" {
		q.Set("format", req.Format)
	}
	return q
}
