package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/config"
	"github.com/hongminglow/lending-console/internal/http/handlers"
	"github.com/hongminglow/lending-console/internal/logging"
	"github.com/hongminglow/lending-console/internal/middleware"
	"github.com/hongminglow/lending-console/internal/seed"
	"github.com/hongminglow/lending-console/internal/server"
	"github.com/hongminglow/lending-console/internal/storage"
	"github.com/hongminglow/lending-console/internal/storage/memory"
	"github.com/hongminglow/lending-console/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, deps, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	limiter := middleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginRateBurst, log)
	go limiter.RunCleanup(ctx, time.Minute)

	srv := server.New(cfg.HTTPAddress(), server.BackendRoutes(cfg, store, limiter, deps, log))

	go func() {
		log.WithField("addr", cfg.HTTPAddress()).Info("lending backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage.Store, map[string]handlers.Pinger, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; using in-memory storage")
		if cfg.SeedDemoData {
			return memory.NewSeeded(), nil, nil
		}
		return memory.New(), nil, nil
	}

	pg, err := postgres.NewStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.SeedDemoData {
		if err := pg.Seed(ctx, seed.Customers(), seed.Loans()); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return pg, map[string]handlers.Pinger{"postgres": pg}, nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found; relying on existing environment")
	}
}
