package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/serialplot/internal/config"
	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/logger"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")

	if cfg.ListPorts {
		if err := listPorts(os.Stdout); err != nil {
			logger.Fatal().Err(err).Msg("failed to list serial ports")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a, err := newApp(cfg, logger.Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	runErr := a.run(ctx)
	if err := a.close(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("session failed")
		os.Exit(1)
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
