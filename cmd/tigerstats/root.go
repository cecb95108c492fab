package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/panyam/tigerstats/api"
	"github.com/panyam/tigerstats/client"
	"github.com/panyam/tigerstats/client/stores/fs"
	"github.com/panyam/tigerstats/internal/logger"
)

// Environment variables read when the matching flag is not set
const (
	EnvConfig      = "TIGERSTATS_CONFIG"
	EnvStore       = "TIGERSTATS_STORE"
	EnvPostgresDSN = "TIGERSTATS_POSTGRES_DSN"
	EnvDatastore   = "TIGERSTATS_DATASTORE_PROJECT"
	EnvRecord      = "TIGERSTATS_RECORD"
	EnvLogLevel    = "TIGERSTATS_LOG_LEVEL"
	EnvLogFormat   = "TIGERSTATS_LOG_FORMAT"
	EnvGatewayURL  = "TIGERSTATS_GATEWAY_URL"
	EnvAccountURL  = "TIGERSTATS_ACCOUNT_URL"
)

const (
	defaultRecordName = "default"
	defaultLogLevel   = "warn"
	defaultLogFormat  = "text"
)

type rootOptions struct {
	config               string
	store                string
	dsn                  string
	datastoreProjectFlag string
	datastoreNamespace   string
	datastoreCredentials string
	record               string
	gatewayURL           string
	accountURL           string

	logLevel  string
	logFile   string
	logFormat string
	logStderr bool

	logger    *slog.Logger
	logCloser io.Closer

	// clientOptions are appended to every client.New call
	clientOptions []client.ClientOption
}

// firstSet returns the flag value, then the environment value, then def
func firstSet(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func (o *rootOptions) configPath() string {
	return firstSet(o.config, EnvConfig, fs.DefaultPath)
}

func (o *rootOptions) storeKind() string {
	return firstSet(o.store, EnvStore, StoreFile)
}

func (o *rootOptions) postgresDSN() string {
	return firstSet(o.dsn, EnvPostgresDSN, "")
}

func (o *rootOptions) datastoreProject() string {
	return firstSet(o.datastoreProjectFlag, EnvDatastore, "")
}

func (o *rootOptions) recordName() string {
	return firstSet(o.record, EnvRecord, defaultRecordName)
}

// profile returns the named endpoint family with gateway overrides applied
func (o *rootOptions) profile(name string) (client.Profile, error) {
	switch name {
	case "analyzer":
		p := api.AnalyzerProfile()
		p.BaseURL = firstSet(o.gatewayURL, EnvGatewayURL, p.BaseURL)
		p.ProbeURL = firstSet(o.accountURL, EnvAccountURL, p.ProbeURL)
		return p, nil
	case "exchanges":
		return api.ExchangesProfile(), nil
	case "users":
		return api.UsersProfile(), nil
	}
	return client.Profile{}, fmt.Errorf("unknown profile %q (want analyzer, exchanges or users)", name)
}

// newClient opens the store and builds an authenticated client for profile
func (o *rootOptions) newClient(ctx context.Context, profileName string) (*client.Client, func(), error) {
	profile, err := o.profile(profileName)
	if err != nil {
		return nil, nil, err
	}
	store, release, err := o.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := append([]client.ClientOption{client.WithLogger(o.logger)}, o.clientOptions...)
	c, err := client.New(ctx, store, profile, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return c, release, nil
}

func (o *rootOptions) setupLogging() error {
	log, closer, err := logger.Setup(logger.Config{
		Level:  logger.ParseLevel(firstSet(o.logLevel, EnvLogLevel, defaultLogLevel)),
		File:   o.logFile,
		Stderr: o.logStderr || o.logFile == "",
		Format: firstSet(o.logFormat, EnvLogFormat, defaultLogFormat),
	})
	if err != nil {
		return err
	}
	o.logger = log
	o.logCloser = closer
	slog.SetDefault(log)
	return nil
}

// NewRootCommand creates the root cobra command
func NewRootCommand(opts ...func(*rootOptions)) *cobra.Command {
	o := &rootOptions{}
	for _, opt := range opts {
		opt(o)
	}

	rootCmd := &cobra.Command{
		Use:   "tigerstats",
		Short: "Query the Tiger Trade statistics service",
		Long: `tigerstats queries the Tiger Trade statistics service with a cached bearer
token, refreshing or re-issuing it as needed and writing the new token back
to the credential store. Results are printed as JSON.

Environment Variables:
  TIGERSTATS_CONFIG             Credential file (default: config.json)
  TIGERSTATS_STORE              file, postgres or datastore (default: file)
  TIGERSTATS_POSTGRES_DSN       DSN for the postgres store
  TIGERSTATS_DATASTORE_PROJECT  GCP project for the datastore store
  TIGERSTATS_RECORD             Record name in postgres/datastore (default: default)
  TIGERSTATS_GATEWAY_URL        Analyzer gateway base URL
  TIGERSTATS_ACCOUNT_URL        Analyzer token probe URL
  TIGERSTATS_LOG_LEVEL          debug, info, warn, error (default: warn)
  TIGERSTATS_LOG_FORMAT         text or json (default: text)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := o.setupLogging(); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}
			o.logger = logger.WithCommand(o.logger, cmd.CommandPath())
			o.logger.Debug("command started")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if o.logCloser != nil {
				return o.logCloser.Close()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.config, "config", "", "Credential file path (overrides TIGERSTATS_CONFIG)")
	flags.StringVar(&o.store, "store", "", "Credential store: file, postgres or datastore")
	flags.StringVar(&o.dsn, "dsn", "", "Postgres DSN for --store=postgres")
	flags.StringVar(&o.datastoreProjectFlag, "datastore-project", "", "GCP project for --store=datastore")
	flags.StringVar(&o.datastoreNamespace, "datastore-namespace", "", "Datastore namespace")
	flags.StringVar(&o.datastoreCredentials, "datastore-credentials", "", "Service account JSON file for --store=datastore")
	flags.StringVar(&o.record, "record", "", "Record name for postgres/datastore stores")
	flags.StringVar(&o.gatewayURL, "gateway-url", "", "Analyzer gateway base URL")
	flags.StringVar(&o.accountURL, "account-url", "", "Analyzer token probe URL")

	flags.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&o.logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	flags.BoolVar(&o.logStderr, "alsologtostderr", false, "Log to both file and stderr")
	flags.StringVar(&o.logFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(newSummaryCommand(o))
	rootCmd.AddCommand(newExchangesCommand(o))
	rootCmd.AddCommand(newUsersCommand(o))
	rootCmd.AddCommand(newAuthCommand(o))

	return rootCmd
}
