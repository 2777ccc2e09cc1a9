package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
	docvaulthttp "github.com/sagarc03/docvault/http"
	"github.com/sagarc03/docvault/keybackend"
	"github.com/sagarc03/docvault/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the docvault HTTP server.

Documents are served under /documents/{filename}. Health is reported on
/health and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 8000, env: PORT)")
	serveCmd.Flags().String("host", "", "HTTP listen host (default: 0.0.0.0, env: HOST)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	service, closeAll, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	if err := service.Ping(ctx); err != nil {
		slog.Warn("storage is not reachable yet", "kind", service.Kind(), "err", err)
	}

	readVerifier, writeVerifier, err := verifiers(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := docvaulthttp.NewHandler(&docvaulthttp.HandlerConfig{
		ReadVerifier:  readVerifier,
		WriteVerifier: writeVerifier,
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Registry:      registry,
	}, service)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", server.Addr,
			"storage", service.Kind(),
			"base_url", cfg.Server.BaseURL,
			"catalog", cfg.Catalog.Type,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// verifiers returns the signature verifiers for private reads and writes.
// A public side gets a nil verifier.
func verifiers(cfg *config.Config) (read, write docvaulthttp.RequestVerifier, err error) {
	if cfg.Auth.Read == "public" && cfg.Auth.Write == "public" {
		return nil, nil, nil
	}

	store, err := keybackend.NewSecretStore(cfg.Auth.Keys)
	if err != nil {
		return nil, nil, fmt.Errorf("load access keys: %w: %w", docvault.ErrConfiguration, err)
	}
	if store.Len() == 0 {
		return nil, nil, fmt.Errorf("private access requires at least one access key: %w", docvault.ErrConfiguration)
	}

	verifier := docvault.NewSignatureVerifier(cfg.Auth.AWS, store)
	if cfg.Auth.Read == "private" {
		read = verifier
	}
	if cfg.Auth.Write == "private" {
		write = verifier
	}

	slog.Info("signature auth enabled", "read", cfg.Auth.Read, "write", cfg.Auth.Write, "keys", store.Len())
	return read, write, nil
}
