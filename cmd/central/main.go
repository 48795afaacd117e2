package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"homefleet/app/config"
	"homefleet/app/logging"
	"homefleet/app/server"
)

func main() {
	configFile := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Component("central")

	srv, err := server.Bootstrap(&cfg.Central, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap central registry")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("central registry failed")
	}
}
