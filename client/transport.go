package client

import (
	"net/http"
)

// HeaderSource produces the header set for an outgoing request
type HeaderSource interface {
	BuildHeaders() http.Header
}

// HeaderTransport wraps an http.RoundTripper and stamps every request with the
// headers from Source at send time, so a retried request always carries the
// session's current token.
type HeaderTransport struct {
	Base   http.RoundTripper
	Source HeaderSource
}

// RoundTrip implements http.RoundTripper
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source != nil {
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		for k, v := range t.Source.BuildHeaders() {
			req2.Header[k] = v
		}
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewHeaderTransport creates a HeaderTransport over base, or over
// http.DefaultTransport when base is nil
func NewHeaderTransport(base http.RoundTripper, source HeaderSource) *HeaderTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HeaderTransport{
		Base:   base,
		Source: source,
	}
}
