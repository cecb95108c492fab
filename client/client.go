package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client for one endpoint family with automatic token management
type Client struct {
	session    *Session
	profile    Profile
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

type clientConfig struct {
	baseTransport  http.RoundTripper
	timeout        time.Duration
	validator      Validator
	issuer         Issuer
	logger         *slog.Logger
	sessionOptions []SessionOption
}

// ClientOption configures a Client
type ClientOption func(*clientConfig)

// WithTransport sets a custom base transport (for proxies, TLS config, test doubles).
// Probe, refresh and login calls also use it, unwrapped.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout overrides the record's api.timeout for business requests
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithValidator replaces the probe validator
func WithValidator(v Validator) ClientOption {
	return func(c *clientConfig) {
		c.validator = v
	}
}

// WithIssuer replaces the refresh/login issuer
func WithIssuer(i Issuer) ClientOption {
	return func(c *clientConfig) {
		c.issuer = i
	}
}

// WithLogger sets the logger shared by the client, session, validator and issuer
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithSessionOptions passes options through to NewSession
func WithSessionOptions(opts ...SessionOption) ClientOption {
	return func(c *clientConfig) {
		c.sessionOptions = append(c.sessionOptions, opts...)
	}
}

// New loads the credential record, builds the session for profile and makes
// sure it holds a valid token before returning.
func New(ctx context.Context, store CredentialStore, profile Profile, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		baseTransport: http.DefaultTransport,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("component", "tigerstats-client", "profile", profile.Name)

	rec, err := store.Load(ctx)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &ConfigError{Err: err}
	}

	profile = profile.resolve(rec.API)
	if profile.BaseURL == "" {
		return nil, &ConfigError{Err: fmt.Errorf("api.base_url is not set")}
	}

	// Use base transport directly for auth calls to avoid a header loop
	authHTTP := &http.Client{Transport: cfg.baseTransport}

	if cfg.validator == nil {
		cfg.validator = &ProbeValidator{
			URL:        profile.ProbeURL,
			Query:      profile.ProbeQuery,
			HTTPClient: authHTTP,
			Logger:     logger,
		}
	}
	if cfg.issuer == nil {
		cfg.issuer = &TokenIssuer{
			AuthURL:    rec.API.AuthURL,
			RefreshURL: rec.API.RefreshURL,
			Store:      store,
			HTTPClient: authHTTP,
			Logger:     logger,
		}
	}
	if cfg.timeout <= 0 {
		cfg.timeout = rec.API.RequestTimeout()
	}

	sessionOpts := append([]SessionOption{WithSessionLogger(logger)}, cfg.sessionOptions...)
	session := NewSession(store, cfg.validator, cfg.issuer, profile, sessionOpts...)

	c := &Client{
		session: session,
		profile: profile,
		timeout: cfg.timeout,
		logger:  logger,
	}
	c.httpClient = &http.Client{Transport: NewHeaderTransport(cfg.baseTransport, session)}

	if err := session.EnsureValidToken(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Session returns the client's session
func (c *Client) Session() *Session {
	return c.session
}

// BaseURL returns the resolved base URL of this client's endpoint family
func (c *Client) BaseURL() string {
	return c.profile.BaseURL
}

// Dispatch issues one request and returns the decoded JSON body. A 401 triggers
// exactly one re-authentication and retry. A 2xx body that is not JSON is
// returned as {"raw_response": text}.
func (c *Client) Dispatch(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return decodeBody(data), nil
}

// DispatchInto is Dispatch with the body decoded into out. A body that does
// not decode into out is an error, not a raw_response.
func (c *Client) DispatchInto(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if c.session.State() != StateValid {
		if err := c.session.EnsureValidToken(ctx); err != nil {
			return nil, err
		}
	}

	target := c.endpointURL(path, query)

	status, data, err := c.send(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Info("unauthorized, re-authenticating", "method", method, "path", path)
		c.session.MarkExpired()
		if err := c.session.EnsureValidToken(ctx); err != nil {
			return nil, err
		}
		status, data, err = c.send(ctx, method, target, body)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusExpectationFailed:
		return nil, &APIError{Kind: KindExpectationFailed, Status: status, Endpoint: path}
	case status == http.StatusTooManyRequests:
		return nil, &APIError{Kind: KindRateLimited, Status: status, Endpoint: path}
	case status >= 400:
		return nil, &APIError{Kind: KindHTTPStatus, Status: status, Endpoint: path, Body: string(data)}
	}
	return data, nil
}

// send makes one attempt. The body is re-encoded on every call so a retry
// sends an identical payload.
func (c *Client) send(ctx context.Context, method, target string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, &APIError{Kind: KindRequest, Endpoint: target, Err: fmt.Errorf("failed to encode body: %w", err)}
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, &APIError{Kind: KindRequest, Endpoint: target, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, transportError(err, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, transportError(err, target)
	}

	c.logger.Debug("request finished",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())
	return resp.StatusCode, data, nil
}

func (c *Client) endpointURL(path string, query url.Values) string {
	target := c.profile.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// transportError classifies a failure that produced no usable response
func transportError(err error, target string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Kind: KindTimeout, Endpoint: target, Err: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &APIError{Kind: KindConnection, Endpoint: target, Err: err}
	}

	return &APIError{Kind: KindRequest, Endpoint: target, Err: err}
}

// decodeBody parses a JSON document, keeping numbers exact. Anything that is
// not a single JSON value comes back as {"raw_response": text}.
func decodeBody(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return map[string]any{"raw_response": string(data)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return map[string]any{"raw_response": string(data)}
	}
	return v
}
