package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cashcat/cashcat-gateway/internal/adapter/inbound/http"
	"github.com/cashcat/cashcat-gateway/internal/adapter/outbound/authverify"
	"github.com/cashcat/cashcat-gateway/internal/adapter/outbound/cashcat"
	"github.com/cashcat/cashcat-gateway/internal/adapter/outbound/memory"
	"github.com/cashcat/cashcat-gateway/internal/config"
	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
	"github.com/cashcat/cashcat-gateway/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway",
	Long: `Start the cashcat gateway HTTP server.

Examples:
  # Start with config file settings
  cashcat-gateway start

  # Listen on all interfaces with a local dev key ("dev-api-key")
  cashcat-gateway start --dev --addr 0.0.0.0:8080

  # Start with a specific config file
  cashcat-gateway --config /path/to/config.yaml start`,
	RunE: runStart,
}

var (
	devMode      bool
	addrFlag     string
	logLevelFlag string
)

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, local dev key)")
	startCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides server.http_addr")
	startCmd.Flags().StringVar(&logLevelFlag, "log-level", "", "log level, overrides server.log_level")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration without validation, so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	if addrFlag != "" {
		cfg.Server.HTTPAddr = addrFlag
	}
	if logLevelFlag != "" {
		cfg.Server.LogLevel = logLevelFlag
	}

	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	transport, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("cashcat gateway starting",
		"version", Version,
		"addr", cfg.Server.HTTPAddr,
		"endpoint", cfg.Server.EndpointPath,
		"auth_mode", cfg.Auth.Mode,
		"upstream", upstreamLabel(cfg.Upstream.BaseURL),
	)
	if cfg.DevMode && cfg.Auth.Mode == config.AuthModeAPIKeys {
		logger.Warn("dev mode enabled: local API keys accepted, do not expose this listener")
	}

	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("gateway stopped: %w", err)
	}
	return nil
}

// buildGateway wires the dependency graph for a validated configuration.
func buildGateway(cfg *config.Config, logger *slog.Logger) (*http.HTTPTransport, error) {
	registry := http.NewRegistry()
	metrics := http.NewMetrics(registry)

	client := cashcat.NewClient(
		cashcat.WithTimeout(cfg.RequestTimeoutDuration()),
		cashcat.WithAPIPrefix(cfg.Upstream.APIPrefix),
		cashcat.WithMaxResponseBytes(cfg.Upstream.MaxResponseBytes),
		cashcat.WithObserver(metrics.ObservePage),
		cashcat.WithLogger(logger),
	)

	tools, err := service.NewToolRegistry(service.ToolDeps{
		Source:  client,
		Fetcher: cashcat.NewPager(client),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	verifier, err := buildVerifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := service.NewDispatcher(tools, auth.NewGate(verifier),
		service.ServerInfo{Name: "cashcat-gateway", Version: Version},
		service.WithToolTimeout(cfg.ToolTimeoutDuration()),
		service.WithDispatcherLogger(logger),
	)

	return http.NewHTTPTransport(dispatcher,
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithEndpointPath(cfg.Server.EndpointPath),
		http.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		http.WithUpstreamBase(cfg.Upstream.BaseURL),
		http.WithTrustForwardedHeaders(cfg.Server.TrustForwardedHeaders),
		http.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		http.WithLogger(logger),
		http.WithMetrics(registry, metrics),
		http.WithHealthChecker(http.NewHealthChecker(tools, cfg.Auth.Mode, cfg.Upstream.BaseURL, Version)),
	), nil
}

// buildVerifier returns the token verifier for the configured auth mode.
func buildVerifier(cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeAPIKeys:
		seeds := make([]memory.KeySeed, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			seeds = append(seeds, memory.KeySeed{KeyHash: k.KeyHash, Identity: k.Identity, Revoked: k.Revoked})
		}
		store, err := memory.NewSeededAuthStore(seeds)
		if err != nil {
			return nil, fmt.Errorf("failed to load api keys: %w", err)
		}
		logger.Debug("loaded api keys", "count", len(seeds))
		return auth.NewAPIKeyService(store), nil
	case config.AuthModeVerifier:
		return authverify.New(cfg.Auth.VerifierURL,
			authverify.WithTimeout(cfg.VerifierTimeoutDuration()),
			authverify.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

func upstreamLabel(base string) string {
	if base == "" {
		return "request origin"
	}
	return base
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
