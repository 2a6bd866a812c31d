// Command devapi serves a seeded stand-in for the admin API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/config"
	"github.com/and161185/admin-console/internal/crypto"
	"github.com/and161185/admin-console/internal/devapi"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads DEVAPI_* settings, lets flags override them and serves until
// SIGINT/SIGTERM.
func main() {
	cfg := config.LoadDevAPI()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.JWTSecret, "jwt-key", cfg.JWTSecret, "HS256 signing key")
	flag.DurationVar(&cfg.TokenTTL, "access-ttl", cfg.TokenTTL, "access token TTL")
	flag.BoolVar(&cfg.ReportTTL, "report-ttl", cfg.ReportTTL, "report accessTokenExpireTime on sign-in")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	srv, err := devapi.Bootstrap(cfg, crypto.DefaultParams, logger)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	logger.Info("seeded operator", zap.String("email", devapi.AdminEmail))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = hs.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
