package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/config"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/db"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/observ"
)

// Usage: migrator [up|down]. DATABASE_URL overrides the DB_* settings.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = db.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}.URL()
	}

	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	logger.Info("running migrations", zap.String("direction", direction))

	switch direction {
	case "up":
		return db.RunMigrations(databaseURL, logger)
	case "down":
		return db.RollbackMigration(databaseURL, logger)
	default:
		return fmt.Errorf("unknown direction %q, want up or down", direction)
	}
}
