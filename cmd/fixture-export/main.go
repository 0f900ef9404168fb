package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/config"
	"github.com/ballast-systems/ballast/internal/engine"
	"github.com/ballast-systems/ballast/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ballast.db")
	runID := flag.String("run", "", "run to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	configPath := flag.String("config", "", "optional ballast.toml supplying engine settings")
	description := flag.String("description", "", "fixture description (default derived from the run)")
	flag.Parse()

	if *dbPath == "" || *runID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/ballast.db --run id --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath, *configPath, *description); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, runID, outPath, configPath, description string) error {
	store, err := archive.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	rows, err := store.ListRun(runID)
	if err != nil {
		return fmt.Errorf("list run: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("run %s has no records", runID)
	}

	fmt.Printf("Found %d archived decisions for run %s\n", len(rows), runID)

	ec := engine.DefaultConfig()
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ec = cfg.ToEngineConfig()
	}

	if description == "" {
		description = fmt.Sprintf("Production export: %d decisions from run %s", len(rows), runID)
	}

	fixture := replay.FromRows(description, ec, rows)
	return writeFixture(fixture, outPath)
}

func writeFixture(fixture *replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d steps)\n", outPath, len(data), len(fixture.Steps))
	return nil
}

// #endregion export
