// Package transport performs authenticated calls against the translator API with:
// - Bearer token injection per call
// - Client trace id propagation
// - Optional circuit breaking
// - Request lifecycle hooks for metrics
//
// Exactly one network round trip is made per call. HTTP status codes are
// returned to the caller for classification; only failures to obtain a
// response at all are reported as transport errors.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"gotranslator/internal/core"
	"gotranslator/internal/httpclient"
)

// Header names sent with every API call
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderClientTraceID = "X-ClientTraceId"
)

// Config holds configuration for the transport client
type Config struct {
	// BaseURL is the API base URL, e.g. http://api.microsofttranslator.com/
	BaseURL string

	// CircuitBreaker enables fail-fast behaviour after repeated transport failures.
	// Nil disables it.
	CircuitBreaker *CircuitBreakerConfig

	// Hooks observe each request
	Hooks Hooks
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit
	FailureThreshold int
	// Timeout is how long the circuit stays open before a trial request is allowed
	Timeout time.Duration
}

// RequestInfo describes an outgoing request for hooks
type RequestInfo struct {
	Method   string
	Endpoint string
}

// ResponseInfo describes a finished request for hooks.
// StatusCode is zero when no response was received.
type ResponseInfo struct {
	Method     string
	Endpoint   string
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Hooks are optional callbacks around every request
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}

// Request represents an API call to be made
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Headers  map[string]string
}

// Response represents a fully read API response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// StreamResponse is an API response whose body has not been read.
// The caller must close Body.
type StreamResponse struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// Client is the authenticated HTTP client for the translator API
type Client struct {
	httpClient *http.Client
	config     Config
	tokens     core.TokenSource
	breaker    *gobreaker.CircuitBreaker
}

// New creates a transport client with the default HTTP client
func New(config Config, tokens core.TokenSource) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, tokens)
}

// NewWithHTTPClient creates a transport client with a custom HTTP client.
// tokens may be nil, in which case no Authorization header is sent.
func NewWithHTTPClient(httpClient *http.Client, config Config, tokens core.TokenSource) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	c := &Client{
		httpClient: httpClient,
		config:     config,
		tokens:     tokens,
	}

	if cb := config.CircuitBreaker; cb != nil {
		threshold := uint32(5)
		if cb.FailureThreshold > 0 {
			threshold = uint32(cb.FailureThreshold)
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "translator-api",
			MaxRequests: 1,
			Timeout:     cb.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}

	return c
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// BreakerState returns the circuit state ("closed", "open", "half-open"),
// or "disabled" when no breaker is configured.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Do executes a request and reads the whole response body
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, finish := c.track(ctx, req)

	stream, err := c.send(ctx, req)
	if err != nil {
		finish(0, err)
		return nil, err
	}
	defer func() {
		_ = stream.Body.Close()
	}()

	body, err := io.ReadAll(stream.Body)
	if err != nil {
		terr := core.NewTransportError("failed to read response: "+err.Error(), err)
		finish(stream.StatusCode, terr)
		return nil, terr
	}

	finish(stream.StatusCode, nil)
	return &Response{
		StatusCode:  stream.StatusCode,
		ContentType: stream.ContentType,
		Body:        body,
	}, nil
}

// Stream executes a request and hands the unread body to the caller.
// OnRequestEnd fires when the caller closes the body, so the reported
// duration includes reading it. The caller must close the body.
func (c *Client) Stream(ctx context.Context, req Request) (*StreamResponse, error) {
	ctx, finish := c.track(ctx, req)

	resp, err := c.send(ctx, req)
	if err != nil {
		finish(0, err)
		return nil, err
	}
	resp.Body = &trackedBody{ReadCloser: resp.Body, finish: func() { finish(resp.StatusCode, nil) }}
	return resp, nil
}

// trackedBody fires finish once, on the first Close
type trackedBody struct {
	io.ReadCloser
	once   sync.Once
	finish func()
}

func (b *trackedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.finish)
	return err
}

// send builds the request, obtains a token and performs the single round trip
func (c *Client) send(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	roundTrip := func() (*http.Response, error) {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, core.NewTransportError("failed to send request: "+err.Error(), err)
		}
		return resp, nil
	}

	var resp *http.Response
	if c.breaker != nil {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return roundTrip()
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, core.NewTransportError("circuit breaker is open - translator API temporarily unavailable", err)
			}
			return nil, err
		}
		resp = out.(*http.Response)
	} else {
		resp, err = roundTrip()
		if err != nil {
			return nil, err
		}
	}

	return &StreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get(HeaderContentType),
		Body:        resp.Body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.resolveURL(req.Endpoint, req.Query)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, core.NewTransportError("failed to create request: "+err.Error(), err)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set(HeaderAuthorization, "Bearer "+token.Value)
	}
	httpReq.Header.Set(HeaderContentType, "text/xml")

	traceID := core.GetRequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderClientTraceID, traceID)

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func (c *Client) resolveURL(endpoint string, query url.Values) string {
	target := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// track fires OnRequestStart and returns a func that fires OnRequestEnd once
func (c *Client) track(ctx context.Context, req Request) (context.Context, func(status int, err error)) {
	start := time.Now()
	hooks := c.config.Hooks
	if hooks.OnRequestStart != nil {
		ctx = hooks.OnRequestStart(ctx, RequestInfo{Method: req.Method, Endpoint: req.Endpoint})
	}
	return ctx, func(status int, err error) {
		if hooks.OnRequestEnd == nil {
			return
		}
		hooks.OnRequestEnd(ctx, ResponseInfo{
			Method:     req.Method,
			Endpoint:   req.Endpoint,
			StatusCode: status,
			Duration:   time.Since(start),
			Error:      err,
		})
	}
}
