package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/fatih/color"

	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/audit"
	"github.com/ballast-systems/ballast/internal/engine"
	"github.com/ballast-systems/ballast/internal/metrics"
	"github.com/ballast-systems/ballast/internal/pipeline"
	"github.com/ballast-systems/ballast/internal/signals"
)

// Color functions for the decision tape
var (
	validColor    = color.New(color.FgGreen)
	rejectedColor = color.New(color.FgYellow)
	errorColor    = color.New(color.FgRed, color.Bold)
)

// #region main

func main() {
	ticks := flag.Int("n", 200, "number of decision ticks to simulate")
	seed := flag.Int64("seed", 42, "RNG seed (runs are reproducible)")
	auditPath := flag.String("audit", "simulate_audit.log", "audit log path")
	dbPath := flag.String("db", "", "optional SQLite archive path")
	symbol := flag.String("symbol", "SIM", "symbol recorded in the audit context")
	flag.Parse()

	logger, err := audit.Open(*auditPath, audit.FNV64())
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	defer logger.Close()

	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	collector := metrics.NewCollector(metrics.DefaultSampleCap)

	var store *archive.Store
	if *dbPath != "" {
		store, err = archive.NewStore(*dbPath)
		if err != nil {
			log.Fatalf("open archive: %v", err)
		}
		defer store.Close()
	}

	runner := pipeline.NewRunner(eng, logger, collector, store)
	runner.Start(context.Background())

	fmt.Printf("Simulating %d ticks (seed %d) against %s\n\n", *ticks, *seed, *symbol)

	producer := signals.NewProducer(rand.New(rand.NewSource(*seed)), signals.DefaultProducerConfig())

	ctx := context.Background()
	auditCtx := audit.Context{Symbol: *symbol, Strategy: "synthetic", Operator: "simulate"}

	for tick := 1; tick <= *ticks; tick++ {
		d, err := runner.Decide(ctx, producer.Produce(tick), auditCtx)
		if err != nil {
			log.Fatalf("tick %d: %v", tick, err)
		}
		printDecision(tick, d)
	}

	// Drain persistence before reading the trail.
	runner.Stop()

	fmt.Println()
	fmt.Println(metrics.Format(collector.GetSnapshot()))
	fmt.Println(logger.Report(0, time.Now().UnixNano()).String())

	if logger.VerifyIntegrity() {
		validColor.Printf("audit chain verified (%d records, %s)\n", logger.Len(), logger.Digest().Name())
	} else {
		errorColor.Printf("AUDIT CHAIN BROKEN after %d records\n", logger.Len())
	}
	if failures := runner.PersistFailures(); failures > 0 {
		errorColor.Printf("%d persistence failures\n", failures)
	}
}

func printDecision(tick int, d engine.Decision) {
	c := validColor
	switch d.Status {
	case engine.StatusRejectedConfidence, engine.StatusRejectedConsensus, engine.StatusFallback:
		c = rejectedColor
	case engine.StatusErrorNoModels:
		c = errorColor
	}
	c.Printf("tick %4d  %-19s value=%+.4f conf=%.2f agreed=%d  %s\n",
		tick, d.Status, d.FinalValue, d.Confidence, d.ModelsAgreed, d.Reasoning)
}

// #endregion main
