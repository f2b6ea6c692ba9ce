package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dinodial-gateway/internal/adapter"
	"dinodial-gateway/internal/config"
	"dinodial-gateway/internal/gateway"
	"dinodial-gateway/internal/httpserver"
	"dinodial-gateway/internal/logger"
	"dinodial-gateway/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "dinodial-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("dinodial-gateway", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("c", "", "path to yaml config file (optional)")
	envPath := fs.String("env", ".env", "path to dotenv file loaded before the config")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse args: %w", err)
	}

	if err := config.LoadDotEnv(*envPath); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	cfg := config.Default()
	if strings.TrimSpace(*cfgPath) != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	return runGateway(cfg, log)
}

func runGateway(cfg *config.Config, log *zap.Logger) error {
	var m *metrics.Metrics
	opts := []gateway.Option{}
	if cfg.MetricsEnabled() {
		m = metrics.New()
		opts = append(opts, gateway.WithMetrics(m))
	}

	ad := adapter.NewDinodialAdapter(cfg.Upstream.BaseURL)
	service := gateway.NewService(cfg, ad, log, opts...)
	server := httpserver.New(cfg, log, service, m)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway starting",
			zap.String("listen", cfg.Listen),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.String("token_source", cfg.Auth.TokenSource),
			zap.String("route_prefix", cfg.Routes.Prefix),
			zap.String("make_call_mode", cfg.MakeCall.Mode),
		)
		errCh <- server.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited unexpectedly: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("gateway stopped")
	return nil
}
