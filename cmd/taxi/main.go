package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/app"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("", logger.LevelInfo)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(2)
	}

	// Printing configuration
	config.PrintConfig(cfg)

	// the passenger REPL owns stdout
	if cfg.Mode == types.PassengerMode {
		log = logger.New(string(cfg.Mode), cfg.Log.Level, os.Stderr)
	} else {
		log = logger.InitLogger(string(cfg.Mode), cfg.Log.Level)
	}

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
