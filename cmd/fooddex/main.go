package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fooddex/fooddex/internal/api"
	"github.com/fooddex/fooddex/internal/config"
	"github.com/fooddex/fooddex/internal/engine"
	"github.com/fooddex/fooddex/internal/sqlitedb"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	envPath := flag.String("env", "", "path to an optional .env file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fooddex offline food-database engine\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", sqlitedb.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", sqlitedb.DriverName)
		os.Exit(0)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			logger.Fatal().Err(err).Msg("error loading .env file")
		}
		logger.Info().Str("path", *envPath).Msg("loaded environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().
		Str("version", version).
		Str("driver", sqlitedb.DriverName).
		Str("build_mode", sqlitedb.BuildMode).
		Msg("fooddex starting")

	eng, err := engine.New(engine.Config{
		BundleBaseURL: cfg.BundleBaseURL,
		BundleDir:     cfg.BundleDir,
		CachePath:     cfg.CachePath,
		Essentials:    cfg.EssentialBundles,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	server := api.NewServer(eng, logger)
	if err := server.Serve(ctx, cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
