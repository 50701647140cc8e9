package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/deeprecall/replica/internal/adapter"
	"github.com/deeprecall/replica/internal/config"
	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/internal/service"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("replicad")
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	remote := adapter.NewHTTPRemoteStore(adapter.HTTPRemoteConfig{
		BaseURL: cfg.Remote.HTTPAddress,
		WSURL:   cfg.Remote.WSAddress,
		Timeout: cfg.Remote.RequestTimeout,
	})

	services := service.NewServices(storages, remote, cfg.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	for _, et := range models.Catalog() {
		if err := services.Engine.RegisterType(ctx, et); err != nil {
			log.Fatal().Err(err).Str("entity_type", et.Name).Msg("register entity type")
		}
	}

	services.Engine.Start(ctx)

	for _, et := range models.Catalog() {
		if err := services.Engine.StartSync(ctx, et.Name); err != nil {
			log.Fatal().Err(err).Str("entity_type", et.Name).Msg("start sync")
		}
	}

	log.Info().Msg("replication engine running")

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	services.Engine.Shutdown()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
