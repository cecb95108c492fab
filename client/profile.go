package client

import (
	"net/url"
	"strings"
)

// Profile describes one endpoint family of the remote service: where requests
// go, which cheap endpoint proves a token is still accepted, and the static
// identity headers sent with every call.
type Profile struct {
	Name string

	// BaseURL overrides the record's api.base_url when set
	BaseURL string

	// ProbeURL is either absolute or a path relative to the base URL
	ProbeURL   string
	ProbeQuery url.Values

	// Headers are sent verbatim on every business request
	Headers map[string]string

	// RequestIDHeaders all receive the same fresh id on every request.
	// Defaults to X-Request-Id.
	RequestIDHeaders []string
}

// resolve fills the base URL from the record and makes the probe URL absolute
func (p Profile) resolve(api APIConfig) Profile {
	if p.BaseURL == "" {
		p.BaseURL = api.BaseURL
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	if p.ProbeURL != "" && !isAbsoluteURL(p.ProbeURL) {
		p.ProbeURL = p.BaseURL + "/" + strings.TrimLeft(p.ProbeURL, "/")
	}
	if len(p.RequestIDHeaders) == 0 {
		p.RequestIDHeaders = []string{"X-Request-Id"}
	}
	return p
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
