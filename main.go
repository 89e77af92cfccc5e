package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/acc-community/acc/acc"
	"github.com/acc-community/acc/acc/api"
	"github.com/acc-community/acc/acc/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldInitSchema := flag.Bool("init-schema", false, "create database tables before serving")
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	customHandler := logger.NewHandler("ACC")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting ACC API",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := acc.LoadConfig(*configPath)
	if err != nil {
		logger.LogError("Failed to load config", err)
		os.Exit(1)
	}

	customHandler.SetLevel(cfg.Log.Level)
	if cfg.Log.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.Log.Level,
			AddSource: cfg.Log.AddSource,
		})))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := acc.New(ctx, cfg, version, commit)
	cancel()
	if err != nil {
		logger.LogError("Failed to initialize", err)
		os.Exit(1)
	}
	defer app.Close()

	pool := app.DB.GetPool()
	logger.LogSystem("Database connected",
		slog.Int("pool_max_conns", int(pool.Stat().MaxConns())),
		slog.Int("pool_total_conns", int(pool.Stat().TotalConns())))

	if *shouldInitSchema {
		initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := app.DB.InitializeSchema(initCtx)
		initCancel()
		if err != nil {
			slog.Error("Failed to initialize schema", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("Database schema initialized")
	}

	server := fiber.New(fiber.Config{
		AppName:      "ACC API",
		ServerHeader: "ACC",
		ErrorHandler: api.ErrorHandler,
	})

	server.Use(recover.New())
	server.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	server.Use(api.RequestLogging())

	api.Register(server, app.Handlers(), app.Sessions, cfg.IsProduction())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Listen(cfg.Server.Addr()); err != nil {
			slog.Error("Server stopped", slog.Any("error", err))
		}
	}()
	logger.LogSystem("Serving", slog.String("address", cfg.Server.Addr()))

	<-c
	logger.LogSystem("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Shutdown error", slog.Any("error", err))
	}
}
