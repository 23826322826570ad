// One-shot expiry sweep against the configured database. Useful from cron or
// for ops runbooks when the service is down.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/surpluslink/go-surpluslink/internal/capacity"
	"github.com/surpluslink/go-surpluslink/internal/config"
	"github.com/surpluslink/go-surpluslink/internal/coordinator"
	"github.com/surpluslink/go-surpluslink/internal/logging"
	"github.com/surpluslink/go-surpluslink/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	coord := coordinator.New(db, capacity.NewTracker(), nil, coordinator.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := coord.ExpireDue(ctx)
	if err != nil {
		logging.Fatalf("Sweep failed: %v", err)
	}

	slog.Info("sweep complete", "expired", expired)
}
