package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"fmt"
	"os"

	"fundingsense-backend/internal/shared/config"
	"fundingsense-backend/internal/shared/storage/db"
	"fundingsense-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	_ = telemetry.InitLogger(cfg.LogLevel, cfg.LogFormat)
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.complete", nil)
}
