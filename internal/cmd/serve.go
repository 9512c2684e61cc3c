package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobtree/internal/config"
	"github.com/3leaps/blobtree/internal/observability"
	"github.com/3leaps/blobtree/internal/server"
	"github.com/3leaps/blobtree/internal/server/handlers"
	"github.com/3leaps/blobtree/internal/source"
)

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing API over HTTP",
		Long: `Start the HTTP server.

Endpoints:
  GET /v1/list?uri=s3://bucket/logs/&recurse=true&max_results=100
  GET /v1/stat?uri=s3://bucket/logs/app.log
  GET /health, /health/live, /health/ready, /health/startup
  GET /version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides server.port)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg := a.cfg
	logger := observability.CLILogger

	handlers.InitHealthManager(versionInfo.Version)
	if cfg.Health.Enabled {
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal", signalHealthChecker{ctx: ctx})
		hm.RegisterChecker("config", configHealthChecker{cfg: cfg})
		if cfg.Server.ReadyURI != "" {
			u, err := source.ParseURI(cfg.Server.ReadyURI)
			if err != nil {
				return exitError(ExitInvalidArgument, "Invalid server.ready_uri", err)
			}
			hm.RegisterChecker("storage", storageHealthChecker{open: a.open, uri: u})
		}
	}

	browseHandler := handlers.NewBrowseHandler(a.open, handlers.BrowseDefaults{
		Parallelism: cfg.Browse.Parallelism,
		MaxResults:  cfg.Browse.MaxResults,
		Timeout:     cfg.Browse.Timeout,
		Filter:      cfg.Filter,
	}, logger)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithLogger(logger),
		server.WithBrowseHandler(browseHandler),
		server.WithErrorResponder(handlers.LoggingResponder(logger)),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return exitError(ExitUnavailable, "Server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitError(ExitFailure, "Shutdown failed", err)
	}
	if err := <-errCh; err != nil {
		return exitError(ExitFailure, "Server failed", err)
	}
	logger.Info("Server stopped")
	return nil
}

// signalHealthChecker fails once shutdown has begun.
type signalHealthChecker struct {
	ctx context.Context
}

func (c signalHealthChecker) CheckHealth(context.Context) error {
	if c.ctx == nil {
		return nil
	}
	if c.ctx.Err() != nil {
		return errors.New("shutting down")
	}
	return nil
}

type configHealthChecker struct {
	cfg *config.Config
}

func (c configHealthChecker) CheckHealth(context.Context) error {
	if c.cfg == nil {
		return errors.New("configuration not loaded")
	}
	return c.cfg.Validate()
}

// storageHealthChecker pings the backend behind uri.
type storageHealthChecker struct {
	open source.OpenFunc
	uri  *source.BlobURI
}

func (c storageHealthChecker) CheckHealth(ctx context.Context) error {
	target, err := c.open(ctx, c.uri)
	if err != nil {
		return err
	}
	if target.Pinger == nil {
		return nil
	}
	if err := target.Pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", c.uri, err)
	}
	return nil
}
