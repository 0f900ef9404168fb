package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region report
// Report aggregates a record sequence over a time window, for compliance
// review. Rates are fractions of the windowed total; ChainIntact is the
// integrity verdict over the whole chain the records came from.
type Report struct {
	WindowStartNs int64 `json:"window_start_ns"`
	WindowEndNs   int64 `json:"window_end_ns"`

	Total              int `json:"total"`
	Valid              int `json:"valid"`
	FallbackUsed       int `json:"fallback_used"`
	RejectedConfidence int `json:"rejected_confidence"`
	RejectedConsensus  int `json:"rejected_consensus"`
	Errors             int `json:"errors"`

	ValidRate    float64 `json:"valid_rate"`
	FallbackRate float64 `json:"fallback_rate"`

	ChainIntact bool `json:"chain_intact"`
}

// BuildReport aggregates the records whose timestamps fall inside
// [startNs, endNs] and carries the supplied integrity verdict.
func BuildReport(records []Record, startNs, endNs int64, intact bool) Report {
	rep := Report{WindowStartNs: startNs, WindowEndNs: endNs, ChainIntact: intact}
	for _, rec := range records {
		ts := rec.Decision.TimestampNs
		if ts < startNs || ts > endNs {
			continue
		}
		rep.Total++
		if rec.Decision.FallbackUsed {
			rep.FallbackUsed++
		}
		switch rec.Decision.Status {
		case engine.StatusValid:
			rep.Valid++
		case engine.StatusRejectedConfidence:
			rep.RejectedConfidence++
		case engine.StatusRejectedConsensus:
			rep.RejectedConsensus++
		case engine.StatusFallback:
			// counted via the FallbackUsed flag above
		case engine.StatusErrorNoModels:
			rep.Errors++
		}
	}
	if rep.Total > 0 {
		rep.ValidRate = float64(rep.Valid) / float64(rep.Total)
		rep.FallbackRate = float64(rep.FallbackUsed) / float64(rep.Total)
	}
	return rep
}

// Report aggregates the logger's own trail over [startNs, endNs], including
// the current integrity verdict.
func (l *Logger) Report(startNs, endNs int64) Report {
	return BuildReport(l.trail, startNs, endNs, l.VerifyIntegrity())
}

// String renders the report as a human-readable block.
func (r Report) String() string {
	integrity := "OK"
	if !r.ChainIntact {
		integrity = "BROKEN"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== Decision Audit Report ===\n")
	fmt.Fprintf(&b, "Window:  %s to %s\n",
		time.Unix(0, r.WindowStartNs).UTC().Format("2006-01-02 15:04:05"),
		time.Unix(0, r.WindowEndNs).UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total decisions:         %d\n", r.Total)
	fmt.Fprintf(&b, "  valid:                 %d\n", r.Valid)
	fmt.Fprintf(&b, "  fallback used:         %d\n", r.FallbackUsed)
	fmt.Fprintf(&b, "  rejected (confidence): %d\n", r.RejectedConfidence)
	fmt.Fprintf(&b, "  rejected (consensus):  %d\n", r.RejectedConsensus)
	fmt.Fprintf(&b, "  errors:                %d\n", r.Errors)
	fmt.Fprintf(&b, "Valid rate:     %.1f%%\n", r.ValidRate*100)
	fmt.Fprintf(&b, "Fallback rate:  %.1f%%\n", r.FallbackRate*100)
	fmt.Fprintf(&b, "Chain integrity: %s\n", integrity)
	return b.String()
}

// #endregion report
