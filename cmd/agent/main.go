package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"homefleet/app/agent"
	"homefleet/app/config"
	"homefleet/app/logging"
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
	log := logging.Component("agent")

	a, err := agent.Bootstrap(&cfg.Agent, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start agent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("agent failed")
	}
}
