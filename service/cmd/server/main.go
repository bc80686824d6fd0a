// Command server runs the Dog match server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/jason-s-yu/dog/service/internal/config"
	"github.com/jason-s-yu/dog/service/internal/database"
	"github.com/jason-s-yu/dog/service/internal/game"
	"github.com/jason-s-yu/dog/service/internal/handlers"
	"github.com/jason-s-yu/dog/service/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	logrus.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Warn("running without postgres")
		} else {
			defer database.Close()
		}
	}
	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
			logrus.WithError(err).Warn("running without redis")
		} else {
			defer cache.Rdb.Close()
			cache.SigningKey = cfg.JWTSecret
			if database.DB != nil {
				go func() {
					if err := historian.Run(ctx, cache.Rdb); err != nil && !errors.Is(err, context.Canceled) {
						logrus.WithError(err).Error("historian stopped")
					}
				}()
			}
		}
	}

	rules := game.DefaultHouseRules()
	rules.TurnTimerSec = int(cfg.TurnTimer / time.Second)
	rules.DisconnectGraceSec = int(cfg.DisconnectGrace / time.Second)
	rules.AutoPlayDisconnected = cfg.AutoPlay
	rules.Engine = cfg.Rules

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewServer(cfg.JWTSecret, rules, cfg.SnapshotTTL).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}()

	logrus.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("serving")
	}
}
