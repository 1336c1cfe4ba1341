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

	"github.com/hongminglow/lending-console/internal/apiclient"
	"github.com/hongminglow/lending-console/internal/config"
	"github.com/hongminglow/lending-console/internal/console"
	"github.com/hongminglow/lending-console/internal/http/handlers"
	"github.com/hongminglow/lending-console/internal/logging"
	"github.com/hongminglow/lending-console/internal/server"
	"github.com/hongminglow/lending-console/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found; relying on existing environment")
	}

	cfg, err := config.LoadConsole()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, deps, closeKV, err := openSessionStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init session store: %v", err)
	}
	defer closeKV()

	opts := []apiclient.Option{apiclient.WithTimeout(cfg.HTTPTimeout), apiclient.WithLogger(log)}
	if cfg.UsePatch {
		opts = append(opts, apiclient.WithPatchUpdates())
	}
	workspaces := console.NewWorkspaces(kv, func(store *session.Store) console.Backend {
		return apiclient.New(cfg.APIURL, store, opts...)
	}, cfg.DemoMode, cfg.SessionTTL, log)
	go workspaces.Run(ctx, time.Minute)

	if cfg.DemoMode {
		log.Warn("demo mode on: an unreachable backend signs in with the demo token")
	}

	srv := server.New(cfg.HTTPAddress(), server.ConsoleRoutes(cfg, workspaces, deps, log))
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddress(), "api": cfg.APIURL, "sessions": cfg.SessionStore}).
			Info("lending console listening")
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

func openSessionStore(ctx context.Context, cfg config.ConsoleConfig) (session.KV, map[string]handlers.Pinger, func(), error) {
	switch cfg.SessionStore {
	case config.SessionFile:
		return session.NewFileKV(cfg.SessionFile), nil, func() {}, nil
	case config.SessionRedis:
		kv, err := session.NewRedisKV(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeKV := func() { _ = kv.Close() }
		return kv, map[string]handlers.Pinger{"redis": kv}, closeKV, nil
	default:
		return session.NewMemoryKV(), nil, func() {}, nil
	}
}
