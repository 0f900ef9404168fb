package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/audit"
)

// Color functions for chain verdicts
var (
	intactColor = color.New(color.FgGreen)
	brokenColor = color.New(color.FgRed, color.Bold)
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ballast.db")
	runID := flag.String("run", "", "show decisions for one run")
	listRuns := flag.Bool("runs", false, "list run summaries")
	last := flag.Int("last", 20, "show N most recent decisions")
	verify := flag.Bool("verify", false, "verify the hash chain of the selected run")
	report := flag.Bool("report", false, "print an aggregate report for the selected run")
	digestName := flag.String("digest", "fnv64", "digest the audit chain was written with")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ballast.db [--runs] [--run id [--verify] [--report]] [--last N] [--json]")
		os.Exit(2)
	}
	if (*verify || *report) && *runID == "" {
		fmt.Fprintln(os.Stderr, "--verify and --report require --run")
		os.Exit(2)
	}

	store, err := archive.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *listRuns:
		err = runListRuns(store, *jsonOut)
	case *runID != "":
		err = runShowRun(store, *runID, *digestName, *verify, *report, *jsonOut)
	default:
		err = runShowLast(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region runs-mode

func runListRuns(store *archive.Store, jsonOut bool) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	if jsonOut {
		return printJSON(runs)
	}

	fmt.Printf("%-36s  %8s  %-20s  %s\n", "Run", "Records", "First", "Last")
	fmt.Printf("%-36s+-%8s+-%-20s+-%s\n",
		"------------------------------------", "--------", "--------------------", "--------------------")
	for _, r := range runs {
		fmt.Printf("%-36s  %8d  %-20s  %s\n",
			r.RunID, r.Records, formatNs(r.FirstNs), formatNs(r.LastNs))
	}
	return nil
}

// #endregion runs-mode

// #region run-mode

func runShowRun(store *archive.Store, runID, digestName string, verify, report, jsonOut bool) error {
	rows, err := store.ListRun(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("run %s has no records", runID)
	}

	records := make([]audit.Record, len(rows))
	for i, r := range rows {
		records[i] = r.Record
	}

	intact := true
	if verify || report {
		digest, err := audit.ParseDigest(digestName)
		if err != nil {
			return err
		}
		intact = audit.VerifyRecords(records, digest)
	}

	if jsonOut {
		if report {
			rep := audit.BuildReport(records, 0, time.Now().UnixNano(), intact)
			return printJSON(struct {
				RunID  string       `json:"run_id"`
				Report audit.Report `json:"report"`
			}{runID, rep})
		}
		out := struct {
			RunID   string         `json:"run_id"`
			Records []audit.Record `json:"records"`
			Intact  *bool          `json:"intact,omitempty"`
		}{RunID: runID, Records: records}
		if verify {
			out.Intact = &intact
		}
		return printJSON(out)
	}

	printRecordTable(rows)

	if verify {
		if intact {
			intactColor.Printf("\nchain verified: %d records intact (%s)\n", len(records), digestName)
		} else {
			brokenColor.Printf("\nCHAIN BROKEN: verification failed (%s)\n", digestName)
		}
	}
	if report {
		rep := audit.BuildReport(records, 0, time.Now().UnixNano(), intact)
		fmt.Printf("\n%s\n", rep.String())
	}
	return nil
}

// #endregion run-mode

// #region last-mode

func runShowLast(store *archive.Store, last int, jsonOut bool) error {
	rows, err := store.LastN(last)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}

	if jsonOut {
		return printJSON(rows)
	}
	printRecordTable(rows)
	return nil
}

// #endregion last-mode

// #region output

func printRecordTable(rows []archive.Row) {
	fmt.Printf("%-6s  %-19s  %9s  %6s  %6s  %-20s  %-8s  %s\n",
		"ID", "Status", "Value", "Conf", "Agreed", "Time", "Symbol", "Hash")
	fmt.Printf("%-6s+-%-19s+-%9s+-%6s+-%6s+-%-20s+-%-8s+-%s\n",
		"------", "-------------------", "---------", "------", "------", "--------------------", "--------", "----------------")

	for _, r := range rows {
		d := r.Record.Decision
		fmt.Printf("%-6d  %-19s  %+9.4f  %6.2f  %6d  %-20s  %-8s  %s\n",
			r.Record.DecisionID, d.Status, d.FinalValue, d.Confidence, d.ModelsAgreed,
			formatNs(d.TimestampNs), r.Record.Context.Symbol, shortHash(r.Record.Hash))
	}
}

func formatNs(ns int64) string {
	if ns == 0 {
		return "—"
	}
	return time.Unix(0, ns).UTC().Format("2006-01-02T15:04:05Z")
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
