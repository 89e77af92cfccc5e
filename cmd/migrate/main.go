// Command migrate imports the legacy site's mongodump export into the
// Postgres schema. One-shot; run it against an initialized database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/acc-community/acc/acc"
	"github.com/acc-community/acc/acc/database"
	"github.com/acc-community/acc/acc/logger"
	"github.com/acc-community/acc/acc/migration"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data", "data", "directory holding the .bson dumps")
	batchSize := flag.Int("batch-size", 1000, "insert batch size")
	initSchema := flag.Bool("init-schema", false, "create database tables first")
	reset := flag.Bool("reset", false, "truncate application tables before importing")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler("ACC-Migrate")))

	cfg, err := acc.LoadConfig(*configPath)
	if err != nil {
		logger.LogError("Failed to load config", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		logger.LogError("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	if *initSchema {
		if err := db.InitializeSchema(ctx); err != nil {
			logger.LogError("Failed to initialize schema", err)
			os.Exit(1)
		}
	}

	if *reset {
		if err := db.ResetAppTables(ctx); err != nil {
			logger.LogError("Failed to reset tables", err)
			os.Exit(1)
		}
	}

	migrator := migration.NewMigrator(db.BunDB(), *dataDir)
	migrator.SetBatchSize(*batchSize)

	if err := migrator.MigrateAll(ctx); err != nil {
		logger.LogError("Migration failed", err)
		os.Exit(1)
	}
	logger.LogSystem("Migration completed successfully")
}
