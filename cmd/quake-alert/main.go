package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-quake-alerts/internal/alert"
	"github.com/mr1hm/go-quake-alerts/internal/api"
	"github.com/mr1hm/go-quake-alerts/internal/config"
	"github.com/mr1hm/go-quake-alerts/internal/ingestion"
	"github.com/mr1hm/go-quake-alerts/internal/logging"
	"github.com/mr1hm/go-quake-alerts/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("quake-alert starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	eventStore := store.New(cfg.Store.Capacity, cfg.NotificationSettings())

	broadcaster := alert.NewBroadcaster()
	sound, vibrator, notifier := alert.LogSinks()
	dispatcher := alert.NewDispatcher(sound, vibrator, notifier, broadcaster)

	snapshot := ingestion.NewSnapshotClient(cfg.Snapshot.BaseURL, cfg.Snapshot.Timeout)
	channel := ingestion.NewMQTTChannel(
		cfg.MQTT.BrokerURL,
		cfg.MQTT.Topic,
		cfg.MQTT.ClientIDPrefix,
		cfg.MQTT.ConnectTimeout,
	)

	coord := ingestion.NewCoordinator(eventStore, alert.NewEngine(), dispatcher, snapshot, channel, ingestion.Options{
		SnapshotLimit:    cfg.Snapshot.Limit,
		SnapshotFallback: cfg.Snapshot.Fallback,
		Workers:          cfg.Worker.Count,
		BufferSize:       cfg.Worker.BufferSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coord.Start(ctx); err != nil {
		// The channel keeps retrying in the background; held snapshot data
		// stays served meanwhile.
		slog.Error("realtime connect failed, continuing degraded", "error", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(eventStore, coord, broadcaster)
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	coord.Stop()
	broadcaster.Close() // Close all streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
