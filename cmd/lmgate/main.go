package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lmgate/internal/admission"
	"lmgate/internal/backend"
	"lmgate/internal/config"
	"lmgate/internal/dnsreg"
	"lmgate/internal/gateway"
	"lmgate/internal/httpapi"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lmgate",
		Short:         "Admission-controlled gateway for a local llama-server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := root.Flags()
	fs.StringP("config", "c", "", "Path to config file (yaml, json, or toml)")
	fs.String("addr", "", "HTTP listen address, e.g. 0.0.0.0:8000")
	fs.String("backend-url", "", "Base URL of the llama-server backend")
	fs.Int("max-concurrent", 0, "Maximum concurrent backend requests")
	fs.Int("max-queue-depth", 0, "Maximum queued requests, 0 for unbounded")
	fs.String("request-timeout", "", "Total per-request budget, queue wait included (e.g. 300 or 5m)")
	fs.String("default-model", "", "Model injected when a request omits one")
	fs.String("log-level", "", "Log level: debug|info|warn|error|off")
	fs.Bool("log-pretty", false, "Human-readable console log output")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the lmgate version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	return root
}

// resolveConfig layers the configuration sources: defaults, then the config
// file, then environment variables, then flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	cfg := config.Default()
	if path, _ := fs.GetString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if fs.Changed("addr") {
		cfg.Addr, _ = fs.GetString("addr")
	}
	if fs.Changed("backend-url") {
		cfg.BackendURL, _ = fs.GetString("backend-url")
	}
	if fs.Changed("max-concurrent") {
		cfg.MaxConcurrent, _ = fs.GetInt("max-concurrent")
	}
	if fs.Changed("max-queue-depth") {
		cfg.MaxQueueDepth, _ = fs.GetInt("max-queue-depth")
	}
	if fs.Changed("request-timeout") {
		s, _ := fs.GetString("request-timeout")
		if err := cfg.RequestTimeout.UnmarshalText([]byte(s)); err != nil {
			return cfg, fmt.Errorf("invalid --request-timeout: %w", err)
		}
	}
	if fs.Changed("default-model") {
		cfg.DefaultModel, _ = fs.GetString("default-model")
	}
	if fs.Changed("log-level") {
		cfg.LogLevel, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-pretty") {
		cfg.LogPretty, _ = fs.GetBool("log-pretty")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var out = zerolog.New(os.Stderr)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return out.Level(lvl).With().Timestamp().Str("service", "lmgate").Logger()
}

func run(cfg config.Config) error {
	logger := newLogger(cfg)

	gate := admission.New(cfg.MaxConcurrent,
		admission.WithMaxQueueDepth(cfg.MaxQueueDepth),
		admission.WithHooks(gateway.GateHooks()),
	)
	be := backend.New(cfg.BackendURL, logger)
	gw := gateway.New(gateway.Config{
		RequestTimeout: time.Duration(cfg.RequestTimeout),
		DefaultModel:   cfg.DefaultModel,
	}, gate, be, logger)

	httpapi.SetLogger(logger)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	httpapi.SetVersion(version)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(gw)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.MetricsMiddleware(mux)}

	// Best-effort DNS self-registration; never blocks startup.
	var reg *dnsreg.Registrar
	if port, err := listenPort(cfg.Addr); err == nil {
		reg = dnsreg.New(cfg.DNS, port, logger)
		go reg.Register(baseCtx)
	} else if cfg.DNS.RegisterOnStartup {
		logger.Warn().Err(err).Msg("cannot derive port from addr, skipping DNS registration")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("backend", cfg.BackendURL).
			Int("max_concurrent", cfg.MaxConcurrent).
			Str("version", version).
			Msg("lmgate listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return err
	}

	// Cancel the base context first so queued waiters and in-flight backend
	// calls unwind, then drain connections.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	if reg != nil && cfg.DNS.RegisterOnStartup {
		reg.Deregister(ctx)
	}
	return nil
}

func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
