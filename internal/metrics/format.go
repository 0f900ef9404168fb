package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Format renders a snapshot as a human-readable block for CLI output.
func Format(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Decision Metrics ===\n")
	fmt.Fprintf(&b, "Total decisions:         %d\n", s.TotalDecisions)
	fmt.Fprintf(&b, "  valid:                 %d\n", s.ValidDecisions)
	fmt.Fprintf(&b, "  rejected (confidence): %d\n", s.RejectedConfidence)
	fmt.Fprintf(&b, "  rejected (consensus):  %d\n", s.RejectedConsensus)
	fmt.Fprintf(&b, "  errors (no models):    %d\n", s.ErrorNoModels)
	fmt.Fprintf(&b, "Fallback activations:    %d (rate %.1f%%)\n", s.FallbackActivations, s.FallbackRate*100)
	fmt.Fprintf(&b, "Consensus failure rate:  %.1f%%\n", s.ConsensusFailureRate*100)
	fmt.Fprintf(&b, "Invalid inputs:          %d\n", s.InvalidInputs)
	fmt.Fprintf(&b, "Confidence: mean %.4f  min %.4f  max %.4f  stddev %.4f\n",
		s.AverageConfidence, s.MinConfidence, s.MaxConfidence, s.StddevConfidence)

	if len(s.ModelsAgreedHist) > 0 {
		keys := make([]int, 0, len(s.ModelsAgreedHist))
		for k := range s.ModelsAgreedHist {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		fmt.Fprintf(&b, "Models agreed:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %d agreed: %d\n", k, s.ModelsAgreedHist[k])
		}
	}

	if s.LastDecisionTimestampNs != 0 {
		fmt.Fprintf(&b, "Last decision: %s\n",
			time.Unix(0, s.LastDecisionTimestampNs).UTC().Format("2006-01-02 15:04:05"))
	}
	if s.OverflowDetected {
		fmt.Fprintf(&b, "WARNING: counter overflow detected, statistics frozen\n")
	}
	return b.String()
}
