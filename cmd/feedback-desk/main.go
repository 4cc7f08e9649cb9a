package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teampulse/feedback-desk/internal/api"
	"github.com/teampulse/feedback-desk/internal/core/ports"
	"github.com/teampulse/feedback-desk/internal/core/service"
	"github.com/teampulse/feedback-desk/internal/core/session"
	"github.com/teampulse/feedback-desk/internal/infrastructure/config"
	"github.com/teampulse/feedback-desk/internal/infrastructure/storage"
	"github.com/teampulse/feedback-desk/internal/infrastructure/upstream"
	"github.com/teampulse/feedback-desk/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// Persistent tier: Redis when configured, the local state file otherwise.
	var persistent ports.TierStore
	if cfg.Redis.Addr != "" {
		client, err := storage.ConnectRedis(ctx, storage.RedisConfig{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		persistent = storage.NewRedis(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("persistent tier on redis")
	} else {
		persistent = storage.NewFile(cfg.SessionFile())
		log.Info().Str("path", cfg.SessionFile()).Msg("persistent tier on state file")
	}

	sessionStore := session.NewStore(persistent, storage.NewMemory(), log)
	if err := sessionStore.RestoreFromStorage(ctx); err != nil {
		log.Warn().Err(err).Msg("session restore failed, starting anonymous")
	}

	client := upstream.NewClient(cfg.Upstream.URL, &http.Client{Timeout: cfg.Upstream.Timeout}, log)
	svc := service.NewFeedbackService(client, sessionStore, cfg.State.DownloadDir, log)
	sessionStore.Subscribe(svc.Reset)

	e := api.NewRouter(client, sessionStore, svc, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("upstream", cfg.Upstream.URL).Msg("feedback-desk listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}
