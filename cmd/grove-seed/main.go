package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/grove/pkg/config"
	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/seed"
	"github.com/platinummonkey/grove/pkg/storage/backends"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.EnvConfigFile), "Path to a YAML config file")
	down := flag.Bool("down", false, "Remove the starter associations instead of adding them")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	if err := run(cfg, *down, logger); err != nil {
		logger.WithError(err).Error("Seeding failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, down bool, logger *observability.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := backends.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer repo.Close()

	seeder := seed.New(repo, logger)
	if down {
		_, err = seeder.Down(ctx)
		return err
	}
	_, err = seeder.Up(ctx)
	return err
}
