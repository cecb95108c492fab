// Package api holds the endpoint families of the Tiger Trade statistics
// service. Each wrapper only shapes parameters; token handling, retries and
// error mapping live in the client package.
package api

import (
	"context"
	"net/url"

	"github.com/panyam/tigerstats/client"
)

const (
	// DefaultGatewayURL is the analyzer gateway. Analyzer calls go here
	// regardless of the record's api.base_url.
	DefaultGatewayURL = "https://trade-web-gtw.tiger.trade"

	// DefaultAccountURL is the analyzer family's probe endpoint, on a different host
	DefaultAccountURL = "https://x-api.tiger.trade/protected/api/v1/trading/account"

	// ExchangeType is sent as X-Exchange-Type on analyzer calls
	ExchangeType = "TIGER_X"
)

// Dispatcher issues one authenticated request and returns the decoded body,
// or decodes it into out. *client.Client implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, path string, query url.Values, body any) (any, error)
	DispatchInto(ctx context.Context, method, path string, query url.Values, body any, out any) error
}

var _ Dispatcher = (*client.Client)(nil)

// AnalyzerProfile targets the statistics gateway. Both request id headers
// carry the same id on each call.
func AnalyzerProfile() client.Profile {
	return client.Profile{
		Name:             "analyzer",
		BaseURL:          DefaultGatewayURL,
		ProbeURL:         DefaultAccountURL,
		Headers:          map[string]string{"X-Exchange-Type": ExchangeType},
		RequestIDHeaders: []string{"Trace-Request-Id", "X-Request-Id"},
	}
}

// ExchangesProfile uses the record's base URL and probes /exchanges
func ExchangesProfile() client.Profile {
	return client.Profile{
		Name:     "exchanges",
		ProbeURL: "/exchanges",
	}
}

// UsersProfile uses the record's base URL and probes the first page of /users
func UsersProfile() client.Profile {
	return client.Profile{
		Name:       "users",
		ProbeURL:   "/users",
		ProbeQuery: url.Values{"page": {"1"}, "items_per_page": {"1"}},
	}
}
