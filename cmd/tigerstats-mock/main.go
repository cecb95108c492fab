// Command tigerstats-mock serves a local fake of the Tiger Trade statistics
// service for development. With --write-config it also writes a credential
// file that points tigerstats at it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/panyam/tigerstats/client"
	"github.com/panyam/tigerstats/client/stores/fs"
	"github.com/panyam/tigerstats/internal/logger"
	"github.com/panyam/tigerstats/internal/mockapi"
)

type options struct {
	addr          string
	username      string
	password      string
	rotateRefresh bool
	tokenTTL      time.Duration
	writeConfig   string
	logLevel      string
	logFormat     string
}

func newCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "tigerstats-mock",
		Short:         "Serve a local fake of the statistics service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVar(&o.addr, "addr", "127.0.0.1:8089", "Listen address")
	cmd.Flags().StringVar(&o.username, "username", "trader", "Accepted username")
	cmd.Flags().StringVar(&o.password, "password", "secret", "Accepted password")
	cmd.Flags().BoolVar(&o.rotateRefresh, "rotate-refresh", true, "Set a new refreshToken cookie on login and refresh")
	cmd.Flags().DurationVar(&o.tokenTTL, "token-ttl", mockapi.DefaultTokenTTL, "Lifetime of issued access tokens")
	cmd.Flags().StringVar(&o.writeConfig, "write-config", "", "Write a credential file for this server to the given path")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&o.logFormat, "log-format", "text", "Log format (text, json)")
	return cmd
}

// recordFor returns a credential record that targets the server at baseURL
func recordFor(baseURL, username, password string) *client.Record {
	return &client.Record{
		API: client.APIConfig{
			BaseURL:    baseURL,
			AuthURL:    baseURL + mockapi.LoginPath,
			RefreshURL: baseURL + mockapi.RefreshPath,
		},
		Auth: client.Credentials{Username: username, Password: password},
	}
}

func serve(ctx context.Context, o *options) error {
	log, closer, err := logger.Setup(logger.Config{
		Level:  logger.ParseLevel(o.logLevel),
		Stderr: true,
		Format: o.logFormat,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	fake := mockapi.New(o.username, o.password)
	fake.RotateRefresh = o.rotateRefresh
	fake.TokenTTL = o.tokenTTL
	fake.Logger = log

	listener, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", o.addr, err)
	}
	baseURL := "http://" + listener.Addr().String()

	if o.writeConfig != "" {
		store := fs.NewFSCredentialStore(o.writeConfig)
		if err := store.Put(ctx, recordFor(baseURL, o.username, o.password)); err != nil {
			listener.Close()
			return err
		}
		log.Info("wrote credential file", "path", store.Path())
	}

	server := &http.Server{Handler: fake, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("mock statistics service listening",
		"url", baseURL,
		"analyzer_gateway", baseURL,
		"account_probe", baseURL+mockapi.AccountPath)
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
