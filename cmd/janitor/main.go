// janitor sweeps expired and orphaned challenges from the database.
// Run once with -once (e.g. from cron), or leave it running with -interval.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenforge/engine/internal/challenge"
	chrepo "tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/db"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	interval := flag.Duration("interval", time.Minute, "time between sweeps")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("janitor: DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	engine := challenge.NewEngine(chrepo.NewPostgresRepository(database), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("janitor: shutting down...")
		cancel()
	}()

	sweep(ctx, engine)
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, engine)
		}
	}
}

func sweep(ctx context.Context, engine *challenge.Engine) {
	n, err := engine.CleanupExpired(ctx)
	if err != nil {
		log.Printf("janitor: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("janitor: removed %d challenges", n)
	}
}
