package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Exchanges wraps the /exchanges family
type Exchanges struct {
	d Dispatcher
}

func NewExchanges(d Dispatcher) *Exchanges {
	return &Exchanges{d: d}
}

// List returns the exchanges, optionally only active ones and with per-exchange stats
func (e *Exchanges) List(ctx context.Context, activeOnly, withStats bool) (any, error) {
	q := url.Values{
		"active_only": {strconv.FormatBool(activeOnly)},
		"with_stats":  {strconv.FormatBool(withStats)},
	}
	return e.d.Dispatch(ctx, http.MethodGet, "/exchanges", q, nil)
}

func (e *Exchanges) Symbols(ctx context.Context, exchangeID int, activeOnly bool) (any, error) {
	q := url.Values{"active_only": {strconv.FormatBool(activeOnly)}}
	return e.d.Dispatch(ctx, http.MethodGet, fmt.Sprintf("/exchanges/%d/symbols", exchangeID), q, nil)
}

func (e *Exchanges) Stats(ctx context.Context, exchangeID int) (any, error) {
	return e.d.Dispatch(ctx, http.MethodGet, fmt.Sprintf("/exchanges/%d/stats", exchangeID), nil, nil)
}
