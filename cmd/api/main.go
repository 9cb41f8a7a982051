package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/pixelmint/pixelmint/internal/api"
	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/creem"
	"github.com/pixelmint/pixelmint/internal/database"
	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/nanobanana"
	"github.com/pixelmint/pixelmint/internal/repository"
	"github.com/pixelmint/pixelmint/internal/service"
	"github.com/pixelmint/pixelmint/internal/storage"
	"github.com/pixelmint/pixelmint/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	profileRepo := repository.NewProfileRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	rechargeRepo := repository.NewRechargeRepository(db)

	providerClient := nanobanana.NewClient(cfg, logr)
	creemClient := creem.NewClient(cfg, logr)
	identityClient := identity.NewClient(cfg, logr)

	var uploader service.ReferenceUploader
	if cfg.S3Bucket != "" {
		up, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = up
	}

	generationService := service.NewGenerationService(cfg, logr, profileRepo, usageRepo, providerClient, uploader)
	walletService := service.NewWalletService(cfg, logr, profileRepo, usageRepo, rechargeRepo)
	paymentService := service.NewPaymentService(cfg, logr, creemClient, rechargeRepo, profileRepo)

	server := api.NewServer(cfg.ListenAddr, logr, db, identityClient, generationService, walletService, paymentService)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
