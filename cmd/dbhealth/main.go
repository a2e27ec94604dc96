package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	timeout := flag.Duration("timeout", time.Second, "ping timeout")
	list := flag.Bool("list", false, "also print the number of stored receipts")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Printf("ERROR: %v", err)
		log.Println("  set DB_DRIVER (postgres|sqlite|bolt) and DB_URL, SQLITE_PATH or BOLT_PATH")
		os.Exit(common.ExitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := check(ctx, cfg, *timeout, *list)
	stop()
	if err != nil {
		log.Printf("DB health: FAIL (%v)", err)
		os.Exit(common.ExitCode(err))
	}
}

func check(ctx context.Context, cfg *common.Config, timeout time.Duration, list bool) error {
	logger := common.SetupLogger(common.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	repo, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Printf("ERROR: closing database: %v", err)
		}
	}()

	if err := repo.HealthCheck(ctx, timeout); err != nil {
		return err
	}
	log.Printf("DB health: OK (%s)", cfg.Database.Driver)

	if list {
		recs, err := repo.List(ctx, nil, nil)
		if err != nil {
			return fmt.Errorf("listing receipts: %w", err)
		}
		log.Printf("receipts count: %d", len(recs))
	}
	return nil
}
