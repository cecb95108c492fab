package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// AnalyzerPath is the trading summary endpoint on the gateway
const AnalyzerPath = "/statistics-gtw/protected/api/v1/statistics/proxy/api/v2/analyzer"

// DefaultOpenBetween is the date range used when none is given
const DefaultOpenBetween = "2025-07-04,2025-07-04"

// Analyzer wraps the trading summary endpoint
type Analyzer struct {
	d   Dispatcher
	now func() time.Time
}

func NewAnalyzer(d Dispatcher) *Analyzer {
	return &Analyzer{d: d, now: time.Now}
}

// TradingSummary returns the analyzer report for openBetween, a
// "YYYY-MM-DD,YYYY-MM-DD" range. Empty means DefaultOpenBetween.
func (a *Analyzer) TradingSummary(ctx context.Context, openBetween string) (any, error) {
	if openBetween == "" {
		openBetween = DefaultOpenBetween
	}
	return a.d.Dispatch(ctx, http.MethodGet, AnalyzerPath, url.Values{"openBetween": {openBetween}}, nil)
}

// TodayStats is TradingSummary for the current local date
func (a *Analyzer) TodayStats(ctx context.Context) (any, error) {
	today := a.now().Format(time.DateOnly)
	return a.TradingSummary(ctx, today+","+today)
}
