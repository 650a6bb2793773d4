package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"worklink/internal/api"
	"worklink/internal/auth"
	"worklink/internal/config"
	"worklink/internal/notify"
	"worklink/internal/store"
	"worklink/internal/ws"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	var handler slog.Handler
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	st, err := store.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Error("store connection failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	verifier, err := auth.NewJWKSVerifier(cfg.AuthIssuerURL)
	if err != nil {
		logger.Error("auth verifier setup failed", "error", err)
		os.Exit(1)
	}

	var notifier ws.Notifier
	if cfg.FCMProjectID != "" && cfg.FCMCredentialsFile != "" {
		credsJSON, err := os.ReadFile(cfg.FCMCredentialsFile)
		if err != nil {
			logger.Warn("FCM credentials unreadable, push disabled", "error", err)
		} else {
			fcm, err := notify.NewFCM(cfg.FCMProjectID, credsJSON, st)
			if err != nil {
				logger.Warn("FCM setup failed, push disabled", "error", err)
			} else {
				notifier = fcm
			}
		}
	}

	grace := time.Duration(cfg.PresenceGraceSeconds) * time.Second
	hub := ws.NewHub(st, notifier, logger, grace, cfg.RateLimitPerMinute)

	router := gin.New()
	api.SetupRoutes(router, st, hub, verifier, logger, cfg.CORSOrigins, cfg.ServiceKey)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down")
		st.Close()
		os.Exit(0)
	}()

	addr := ":" + cfg.Port
	logger.Info("realtime gateway listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
