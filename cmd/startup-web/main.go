package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"startupetl/internal/app"
	"startupetl/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(ctx); err != nil {
		application.Logger.Warn("Shutdown incomplete", slog.String("error", err.Error()))
	}
	if runErr != nil {
		application.Logger.Error("Application error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
