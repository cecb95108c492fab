package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ProbeTimeout bounds a validation probe. It is shorter than DefaultTimeout.
const ProbeTimeout = 10 * time.Second

// Validator decides whether a token is currently accepted by the remote service
type Validator interface {
	Check(ctx context.Context, token string) bool
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(ctx context.Context, token string) bool

func (f ValidatorFunc) Check(ctx context.Context, token string) bool {
	return f(ctx, token)
}

// ProbeValidator checks a token with one authenticated GET against a cheap endpoint.
// It fails closed: any error or non-200 status means invalid.
type ProbeValidator struct {
	URL        string
	Query      url.Values
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

func (v *ProbeValidator) Check(ctx context.Context, token string) bool {
	if token == "" || v.URL == "" {
		return false
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := v.URL
	if len(v.Query) > 0 {
		target += "?" + v.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		v.logger().Debug("probe request build failed", "url", v.URL, "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := v.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		v.logger().Debug("probe failed", "url", v.URL, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	v.logger().Debug("probe finished", "url", v.URL, "status", resp.StatusCode)
	return resp.StatusCode == http.StatusOK
}

func (v *ProbeValidator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}
