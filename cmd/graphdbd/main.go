// Command graphdbd runs the embedded graph database behind an HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	graphdb "github.com/dot-do/neo4j-sub002"
	"github.com/dot-do/neo4j-sub002/internal/config"
	"github.com/dot-do/neo4j-sub002/internal/httpapi"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "graphdbd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg := config.Default()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	driver, err := graphdb.NewDriverWithContext(ctx, "neo4j://"+cfg.Store.Path, graphdb.NoAuth(), sugar,
		graphdb.WithTransactionTimeout(cfg.Transaction.Timeout),
		graphdb.WithMaxTransactionRetryTime(cfg.Transaction.MaxRetryTime),
	)
	if err != nil {
		return fmt.Errorf("open driver: %w", err)
	}
	defer func() { _ = driver.Close(context.Background()) }()

	server := httpapi.NewServer(driver, sugar)
	httpServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("listening", "addr", cfg.Server.ListenAddr, "store", cfg.Store.Path, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}
