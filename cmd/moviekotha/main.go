package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"moviekotha/internal/bot"
	"moviekotha/internal/config"
	"moviekotha/internal/intake"
	"moviekotha/internal/metadata"
	"moviekotha/internal/search"
	"moviekotha/internal/shortener"
	"moviekotha/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.WithFields(logrus.Fields{
		"admin_id":            cfg.AdminID,
		"metadata_cache_path": cfg.MetadataCachePath,
	}).Info("Configuration loaded successfully")

	log.Info("Initializing components...")

	// Movie store
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	repo, err := storage.NewMongoRepository(connectCtx, cfg.MongoURI, log)
	cancelConnect()
	if err != nil {
		log.Fatalf("Failed to initialize movie store: %v", err)
	}
	defer func() {
		log.Info("Closing movie store...")
		closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelClose()
		if err := repo.Close(closeCtx); err != nil {
			log.WithError(err).Error("Error closing movie store")
		}
	}()

	// Metadata client with its persistent cache
	tmdb := metadata.NewTMDBClient(cfg.TMDBAPIKey, cfg.HTTPTimeout, log)
	meta, err := metadata.NewCachedClient(tmdb, cfg.MetadataCachePath, log)
	if err != nil {
		log.Fatalf("Failed to initialize metadata cache: %v", err)
	}
	defer func() {
		if err := meta.Close(); err != nil {
			log.WithError(err).Error("Error closing metadata cache")
		}
	}()

	// Link shortener
	gplinks := shortener.NewGPLinks(cfg.GPLinksAPIKey, cfg.HTTPTimeout, log)

	// Core pipelines
	pipeline := search.NewPipeline(repo, meta, gplinks, log)
	machine := intake.NewMachine(repo, meta, log)

	// Bot handler
	botHandler, err := bot.NewHandler(cfg, repo, pipeline, machine, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
	}

	log.Info("Starting MovieKotha...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go botHandler.Start(ctx)

	log.Info("MovieKotha is running. Press Ctrl+C to exit.")

	<-ctx.Done()

	log.Info("Shutting down MovieKotha...")
	stop()

	log.Info("MovieKotha shut down gracefully.")
}
