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

	"github.com/surpluslink/go-surpluslink/internal/api"
	"github.com/surpluslink/go-surpluslink/internal/capacity"
	"github.com/surpluslink/go-surpluslink/internal/config"
	"github.com/surpluslink/go-surpluslink/internal/coordinator"
	"github.com/surpluslink/go-surpluslink/internal/logging"
	"github.com/surpluslink/go-surpluslink/internal/notify"
	"github.com/surpluslink/go-surpluslink/internal/repository"
	"github.com/surpluslink/go-surpluslink/internal/storage"
	"github.com/surpluslink/go-surpluslink/internal/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster := notify.NewBroadcaster()
	tracker := capacity.NewTracker()

	coord := coordinator.New(db, tracker, broadcaster, coordinator.Config{
		HardCapacityLimit: cfg.Capacity.HardLimit,
	})

	// Periodic expiry sweep keeps the feed honest even with no traffic.
	mgr := sweep.NewManager(cfg.Sweep.Interval, cfg.Sweep.Workers, cfg.Sweep.BufferSize, coord, tracker)
	mgr.Start(ctx)

	// Optional operations-chat notifier.
	var telegram *notify.TelegramSink
	if cfg.Telegram.Token != "" {
		telegram, err = notify.NewTelegramSink(notify.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			logging.Fatalf("Failed to initialize telegram sink: %v", err)
		}
		_, events := broadcaster.Subscribe()
		go telegram.Run(ctx, events)
	}

	// Optional photo storage; without it the upload endpoint answers 503 and
	// clients must supply externally hosted photo references.
	var photos storage.PhotoStore
	if cfg.Cloudinary.CloudName != "" {
		photos, err = storage.NewCloudinaryStore(storage.CloudinaryConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
		})
		if err != nil {
			logging.Fatalf("Failed to initialize photo storage: %v", err)
		}
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

	handler := api.NewHandler(coord, db, photos, broadcaster)
	handler.RegisterRoutes(router)

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
	mgr.Stop()
	broadcaster.Close() // closes the event stream and the telegram feed
	if telegram != nil {
		telegram.Wait()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
