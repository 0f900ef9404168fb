package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ballast-systems/ballast/internal/api"
	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/audit"
	"github.com/ballast-systems/ballast/internal/config"
	"github.com/ballast-systems/ballast/internal/engine"
	"github.com/ballast-systems/ballast/internal/metrics"
	"github.com/ballast-systems/ballast/internal/pipeline"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("BALLAST_CONFIG", ""), "path to ballast.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Decision engine
	eng, err := engine.New(cfg.ToEngineConfig())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	// Append-only audit trail
	digest, err := audit.ParseDigest(cfg.Audit.Digest)
	if err != nil {
		log.Fatalf("audit digest: %v", err)
	}
	logger, err := audit.Open(cfg.Audit.Path, digest)
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	defer logger.Close()

	collector := metrics.NewCollector(cfg.Metrics.SampleCap)

	// Optional SQLite archive for long-term queries
	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.NewStore(cfg.Archive.Path)
		if err != nil {
			log.Fatalf("open archive: %v", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(eng, logger, collector, store)
	runner.Start(ctx)

	server := api.NewServer(api.Options{
		BindAddress:         cfg.API.BindAddress,
		CORSOrigins:         cfg.API.CORSOrigins,
		DecideRatePerSec:    cfg.API.DecideRatePerSec,
		DecideRateBurst:     cfg.API.DecideRateBurst,
		HealthyFallbackRate: cfg.Metrics.HealthyFallbackRate,
		EnablePrometheus:    cfg.API.EnablePrometheus,
	}, runner)

	fmt.Println("Ballast decision daemon ready.")
	fmt.Printf("  Audit: %s (%s) | Archive: %s | Run: %s\n",
		cfg.Audit.Path, digest.Name(), archiveLabel(cfg), runner.RunID())

	if err := server.Run(ctx); err != nil {
		log.Printf("server: %v", err)
	}

	// Drain the persistence queue before the process exits.
	runner.Stop()

	if failures := runner.PersistFailures(); failures > 0 {
		log.Printf("shutdown with %d persistence failures", failures)
	}
	log.Printf("shutdown complete, %d decisions recorded", logger.Len())
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func archiveLabel(cfg config.Config) string {
	if !cfg.Archive.Enabled {
		return "disabled"
	}
	return cfg.Archive.Path
}

// #endregion helpers
