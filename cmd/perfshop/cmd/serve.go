package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/app"
	"github.com/Aman-CERP/perfshop/internal/config"
	"github.com/Aman-CERP/perfshop/internal/httpapi"
	"github.com/Aman-CERP/perfshop/internal/mcp"
	"github.com/Aman-CERP/perfshop/internal/tracing"
	"github.com/Aman-CERP/perfshop/pkg/version"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront over HTTP or MCP",
		Long: `Serve the storefront.

  --transport http   JSON API on --addr (search, flags, cart, budgets, vitals)
  --transport stdio  Model Context Protocol tools on stdin/stdout

Flag changes made with 'perfshop flags' are picked up while serving.`,
		Example: `  perfshop serve
  perfshop serve --addr :9090
  perfshop serve --transport stdio`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogging: "file"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "http", "Transport: http, stdio")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	switch strings.ToLower(cfg.Server.Transport) {
	case "stdio":
		// stdout carries JSON-RPC only.
		srv, err := mcp.NewServer(a)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)

	case "http":
		opts := httpapi.Options{
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		}
		if cfg.Tracing.Enabled {
			opts.ServiceName = cfg.Tracing.ServiceName
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "perfshop listening on %s\n", cfg.Server.Addr)
		return httpapi.NewServer(ctx, a, opts).Serve(ctx, cfg.Server.Addr)

	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}
