package main

import (
	"flag"
	"log/slog"
	"os"

	"bikepulse/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to config.yaml or configs/config.yaml)")
	flag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
