package main

import (
	"context"
	"log"
	"time"

	"github.com/noah-isme/talent-pipeline-api/internal/repository"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
	"github.com/noah-isme/talent-pipeline-api/pkg/config"
	"github.com/noah-isme/talent-pipeline-api/pkg/database"
	"github.com/noah-isme/talent-pipeline-api/pkg/logger"
)

// Seeds the fixed demo accounts. Safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeder := service.NewSeedService(repository.NewUserRepository(db), logr)
	created, err := seeder.SeedDemoAccounts(ctx)
	if err != nil {
		logr.Sugar().Fatalw("seeding failed", "created", created, "error", err)
	}

	logr.Sugar().Infow("seeding finished", "created", created)
}
