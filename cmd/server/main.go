package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	webAdapter "agency-ledger/internal/adapters/web"
	"agency-ledger/internal/app"
	"agency-ledger/internal/config"
	"agency-ledger/internal/db"
	"agency-ledger/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	services, err := app.WireServices(pool, cfg.Posting, cfg.Ranking, zlog)
	if err != nil {
		zlog.Fatal("wiring", zap.Error(err))
	}
	svc := app.NewAppService(services)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           webAdapter.NewHandler(svc, zlog, cfg.AllowedOrigins, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("shutdown", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("mode", cfg.Mode))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server", zap.Error(err))
	}
	zlog.Info("server stopped")
}
