package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/panyam/tigerstats/api"
	"github.com/panyam/tigerstats/client"
)

// run builds a client for profile, calls fn and prints its result. Every
// failure is printed as an error document and the command itself succeeds.
func (o *rootOptions) run(cmd *cobra.Command, profile string, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, release, err := o.newClient(ctx, profile)
	if err != nil {
		o.logger.Debug("client setup failed", "profile", profile, "error", err)
		writeError(out, err)
		return nil
	}
	defer release()

	result, err := fn(ctx, c)
	if err != nil {
		o.logger.Debug("request failed", "profile", profile, "error", err)
		writeError(out, err)
		return nil
	}
	return writeJSON(out, result)
}

func parseID(cmd *cobra.Command, raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(cmd.OutOrStdout(), fmt.Errorf("invalid id %q: %w", raw, err))
		return 0, false
	}
	return id, true
}

func newSummaryCommand(o *rootOptions) *cobra.Command {
	var openBetween string
	var today bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the trading summary from the analyzer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "analyzer", func(ctx context.Context, c *client.Client) (any, error) {
				analyzer := api.NewAnalyzer(c)
				if today {
					return analyzer.TodayStats(ctx)
				}
				return analyzer.TradingSummary(ctx, openBetween)
			})
		},
	}
	cmd.Flags().StringVar(&openBetween, "open-between", api.DefaultOpenBetween, "Date range as YYYY-MM-DD,YYYY-MM-DD")
	cmd.Flags().BoolVar(&today, "today", false, "Use today's date for both ends of the range")
	return cmd
}

func newExchangesCommand(o *rootOptions) *cobra.Command {
	var activeOnly, withStats bool

	cmd := &cobra.Command{
		Use:   "exchanges",
		Short: "List exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "exchanges", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewExchanges(c).List(ctx, activeOnly, withStats)
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active-only", true, "Only list active exchanges")
	cmd.Flags().BoolVar(&withStats, "with-stats", true, "Include per-exchange statistics")

	var symbolsActiveOnly bool
	symbols := &cobra.Command{
		Use:   "symbols <exchange-id>",
		Short: "List the symbols of one exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := parseID(cmd, args[0])
			if !ok {
				return nil
			}
			return o.run(cmd, "exchanges", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewExchanges(c).Symbols(ctx, id, symbolsActiveOnly)
			})
		},
	}
	symbols.Flags().BoolVar(&symbolsActiveOnly, "active-only", true, "Only list active symbols")

	stats := &cobra.Command{
		Use:   "stats <exchange-id>",
		Short: "Print statistics for one exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := parseID(cmd, args[0])
			if !ok {
				return nil
			}
			return o.run(cmd, "exchanges", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewExchanges(c).Stats(ctx, id)
			})
		},
	}

	cmd.AddCommand(symbols, stats)
	return cmd
}

func newUsersCommand(o *rootOptions) *cobra.Command {
	var page, perPage int
	var search, status, role string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := map[string]any{}
			for name, value := range map[string]string{"search": search, "status": status, "role": role} {
				if cmd.Flags().Changed(name) {
					filters[name] = value
				}
			}
			return o.run(cmd, "users", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewUsers(c).List(ctx, page, perPage, filters)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "items-per-page", api.DefaultItemsPerPage, "Users per page")
	cmd.Flags().StringVar(&search, "search", "", "Search filter")
	cmd.Flags().StringVar(&status, "status", "", "Status filter")
	cmd.Flags().StringVar(&role, "role", "", "Role filter")

	me := &cobra.Command{
		Use:   "me",
		Short: "Print the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "users", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewUsers(c).Me(ctx)
			})
		},
	}

	var period string
	stats := &cobra.Command{
		Use:   "stats [user-id]",
		Short: "Print statistics for a user, or for the authenticated user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := 0
			if len(args) == 1 {
				var ok bool
				if id, ok = parseID(cmd, args[0]); !ok {
					return nil
				}
			}
			return o.run(cmd, "users", func(ctx context.Context, c *client.Client) (any, error) {
				return api.NewUsers(c).Stats(ctx, id, period)
			})
		},
	}
	stats.Flags().StringVar(&period, "period", api.DefaultStatsPeriod, "Statistics period")

	cmd.AddCommand(me, stats)
	return cmd
}

func newAuthCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Token management",
	}

	var profile string
	check := &cobra.Command{
		Use:   "check",
		Short: "Make sure the stored token is valid, refreshing it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, profile, func(ctx context.Context, c *client.Client) (any, error) {
				session := c.Session()
				tok, err := session.Token()
				if err != nil {
					return nil, err
				}
				report := map[string]any{
					"profile":    profile,
					"base_url":   c.BaseURL(),
					"state":      session.State().String(),
					"token_type": tok.Type(),
				}
				if !tok.Expiry.IsZero() {
					report["expires_at"] = tok.Expiry.UTC().Format(time.RFC3339)
				}
				if profile == "users" {
					me, err := api.NewUsers(c).Current(ctx)
					if err != nil {
						return nil, err
					}
					report["user"] = me.Username
				}
				return report, nil
			})
		},
	}
	check.Flags().StringVar(&profile, "profile", "users", "Endpoint family: analyzer, exchanges or users")

	cmd.AddCommand(check)
	return cmd
}
