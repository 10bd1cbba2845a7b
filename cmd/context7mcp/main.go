package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"context7mcp/internal/buildinfo"
	"context7mcp/internal/domain"
	"context7mcp/internal/infra/catalog"
	"context7mcp/internal/infra/config"
	"context7mcp/internal/infra/fanout"
	"context7mcp/internal/infra/gateway"
	"context7mcp/internal/infra/telemetry"
)

type serverOptions struct {
	configPath string
	transport  string
	httpAddr   string
	httpPath   string
	httpToken  string
	logger     *zap.Logger
}

func main() {
	opts := serverOptions{
		transport: "stdio",
		logger:    zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "context7mcp",
		Short: "MCP server exposing Context7 library documentation tools",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg := zap.NewProductionConfig()
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return runServer(ctx, cmd.Flags(), &opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file (empty uses defaults plus CONTEXT7_* env)")
	root.PersistentFlags().StringVar(&opts.transport, "transport", opts.transport, "server transport (stdio or streamable-http)")
	root.PersistentFlags().StringVar(&opts.httpAddr, "http-addr", "", "streamable HTTP listen address (overrides config)")
	root.PersistentFlags().StringVar(&opts.httpPath, "http-path", "", "streamable HTTP endpoint path (overrides config)")
	root.PersistentFlags().StringVar(&opts.httpToken, "http-token", "", "streamable HTTP bearer token (required for non-localhost)")

	root.AddCommand(newVersionCommand())
	root.AddCommand(newConfigCommand(&opts))

	if err := root.Execute(); err != nil {
		opts.logger.Fatal("command failed", zap.Error(err))
	}
}

func runServer(ctx context.Context, flags *pflag.FlagSet, opts *serverOptions) error {
	cfg, err := config.NewLoader(opts.logger).Load(ctx, opts.configPath)
	if err != nil {
		return err
	}
	applyHTTPFlagOverrides(flags, opts, &cfg)

	switch opts.transport {
	case "stdio":
	case "streamable-http":
		if err := validateHTTPOptions(cfg.HTTP); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported transport: %s", opts.transport)
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Observability.TraceEndpoint, opts.logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	var metrics *telemetry.PrometheusMetrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.EnableMetrics {
		metrics = telemetry.NewPrometheusMetrics(registry)
	}

	client, err := catalog.NewClient(cfg.Upstream, nil, metrics, opts.logger)
	if err != nil {
		return err
	}
	coordinator := fanout.NewCoordinator(client, cfg.FanOut, metrics, opts.logger)
	gw := gateway.NewGateway(client, coordinator, cfg.HTTP, opts.logger)

	if opts.configPath != "" {
		watcher := config.NewWatcher(config.NewLoader(opts.logger), opts.configPath, func(next domain.Config) {
			if err := client.ApplySettings(next.Upstream); err != nil {
				opts.logger.Warn("reloaded upstream settings rejected", zap.Error(err))
			}
		}, opts.logger)
		go watcher.Run(ctx)
	}

	go func() {
		if err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          cfg.Observability.ListenAddress,
			EnableMetrics: cfg.Observability.EnableMetrics,
			Registry:      registry,
		}, opts.logger); err != nil {
			opts.logger.Error("observability server failed", zap.Error(err))
		}
	}()

	switch opts.transport {
	case "stdio":
		err = gw.Run(ctx)
	case "streamable-http":
		err = gw.RunStreamableHTTP(ctx)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// applyHTTPFlagOverrides lets explicitly set flags win over file values.
func applyHTTPFlagOverrides(flags *pflag.FlagSet, opts *serverOptions, cfg *domain.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTP.Addr = opts.httpAddr
		case "http-path":
			cfg.HTTP.Path = opts.httpPath
		case "http-token":
			cfg.HTTP.Token = opts.httpToken
		}
	})
}

func validateHTTPOptions(cfg domain.HTTPConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("http address is required")
	}
	if !isLocalhostAddr(cfg.Addr) && strings.TrimSpace(cfg.Token) == "" {
		return errors.New("http token is required when binding to non-localhost address")
	}
	return nil
}

func isLocalhostAddr(addr string) bool {
	host := addr
	if strings.Contains(addr, ":") {
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		}
	}
	host = strings.TrimSpace(host)
	if host == "" || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "context7mcp %s (build %s)\n", buildinfo.Version, buildinfo.Build)
		},
	}
}

func newConfigCommand(opts *serverOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(opts.logger).Load(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
