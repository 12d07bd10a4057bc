package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/talent-pipeline-api/pkg/cache"
	"github.com/noah-isme/talent-pipeline-api/pkg/config"
	"github.com/noah-isme/talent-pipeline-api/pkg/database"
)

// Verifies that the configured Postgres and Redis instances are reachable
// and prints basic table counts. Exits non-zero on any failure.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	failed := false

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: FAIL (%v)\n", err)
		failed = true
	} else {
		defer db.Close() //nolint:errcheck
		fmt.Println("postgres: OK")
		for _, table := range []string{"users", "onboardings", "documents"} {
			var count int
			if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
				fmt.Fprintf(os.Stderr, "  %s: FAIL (%v)\n", table, err)
				failed = true
				continue
			}
			fmt.Printf("  %s: %d rows\n", table, count)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: FAIL (%v)\n", err)
		failed = true
	} else {
		defer redisClient.Close() //nolint:errcheck
		fmt.Println("redis: OK")
	}

	if failed {
		os.Exit(1)
	}
}
