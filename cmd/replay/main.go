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
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	dbPath := flag.String("db", "", "path to ballast.db (DB mode)")
	runID := flag.String("run", "", "run to replay (DB mode)")
	configPath := flag.String("config", "", "optional ballast.toml supplying engine settings for DB mode")
	jsonOut := flag.Bool("json", false, "output results as JSON")
	flag.Parse()

	fixtureMode := *fixturePath != ""
	dbMode := *dbPath != ""
	if fixtureMode == dbMode {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/ballast.db --run id [--config ballast.toml]")
		os.Exit(2)
	}
	if dbMode && *runID == "" {
		fmt.Fprintln(os.Stderr, "DB mode requires --run")
		os.Exit(2)
	}

	var exitCode int
	if fixtureMode {
		exitCode = runFixtureMode(*fixturePath, *jsonOut)
	} else {
		exitCode = runDBMode(*dbPath, *runID, *configPath, *jsonOut)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runFixtureMode(path string, jsonOut bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return runAndReport(f, jsonOut)
}

func runDBMode(dbPath, runID, configPath string, jsonOut bool) int {
	store, err := archive.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	rows, err := store.ListRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list run: %v\n", err)
		return 2
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "run %s has no records\n", runID)
		return 2
	}

	// Archived rows do not carry the engine settings they ran under, so
	// the caller supplies them (or accepts the defaults).
	ec := engine.DefaultConfig()
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 2
		}
		ec = cfg.ToEngineConfig()
	}

	f := replay.FromRows(fmt.Sprintf("run %s exported from %s", runID, dbPath), ec, rows)
	return runAndReport(f, jsonOut)
}

// #endregion modes

// #region output

func runAndReport(f *replay.Fixture, jsonOut bool) int {
	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	summary := replay.Summarize(results)

	if jsonOut {
		out := struct {
			Description string              `json:"description"`
			Results     []replay.StepResult `json:"results"`
			Summary     replay.Summary      `json:"summary"`
		}{f.Description, results, summary}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
			return 2
		}
		fmt.Println(string(data))
	} else {
		printComparison(f, results, summary)
	}

	if summary.Mismatched > 0 {
		return 1
	}
	return 0
}

func printComparison(f *replay.Fixture, results []replay.StepResult, summary replay.Summary) {
	if f.Description != "" {
		fmt.Println(f.Description)
	}

	fmt.Printf("%-16s| %-19s| %-19s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Printf("%-16s+%-20s+%-20s+%s\n",
		"----------------", "--------------------", "--------------------", "------")

	for _, r := range results {
		expected := "—"
		if r.Index < len(f.Steps) && f.Steps[r.Index].ExpectStatus != "" {
			expected = f.Steps[r.Index].ExpectStatus
		}
		match := "OK"
		if !r.Match {
			match = "DIFF"
		}
		fmt.Printf("%-16s| %-19s| %-19s| %s\n", r.Name, expected, r.Got.Status, match)
	}

	// Spell out what diverged, step by step.
	for _, r := range results {
		for _, m := range r.Mismatches {
			fmt.Printf("  %s: %s\n", r.Name, m)
		}
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n",
		summary.TotalSteps, summary.Matched, summary.Mismatched)
}

// #endregion output
