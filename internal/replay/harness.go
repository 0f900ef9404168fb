package replay

import (
	"fmt"
	"math"

	"github.com/ballast-systems/ballast/internal/engine"
)

// valueTolerance bounds acceptable drift when comparing replayed final
// values against recorded ones.
const valueTolerance = 1e-9

// #region types

// StepResult captures the outcome of replaying one fixture step.
type StepResult struct {
	Index      int
	Name       string
	Got        engine.Decision
	Match      bool
	Mismatches []string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps int
	Matched    int
	Mismatched int
	ByStatus   map[string]int
}

// #endregion types

// #region replay

// Replay runs every fixture step through a fresh engine and compares each
// decision against the step's expectations. Operates entirely in-memory.
func Replay(f *Fixture) ([]StepResult, error) {
	cfg := engine.DefaultConfig()
	if f.Config != nil {
		cfg = f.Config.ToEngineConfig()
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}
	if len(f.SeedFallback) > 0 {
		eng.SeedFallback(f.SeedFallback...)
	}

	results := make([]StepResult, 0, len(f.Steps))
	for i, step := range f.Steps {
		d := eng.Decide(step.Signals)

		var mismatches []string
		if step.ExpectStatus != "" && d.Status.String() != step.ExpectStatus {
			mismatches = append(mismatches, fmt.Sprintf("status: got %s, want %s", d.Status, step.ExpectStatus))
		}
		if step.ExpectFallback != nil && d.FallbackUsed != *step.ExpectFallback {
			mismatches = append(mismatches, fmt.Sprintf("fallback_used: got %t, want %t", d.FallbackUsed, *step.ExpectFallback))
		}
		if step.ExpectAgreed != nil && d.ModelsAgreed != *step.ExpectAgreed {
			mismatches = append(mismatches, fmt.Sprintf("models_agreed: got %d, want %d", d.ModelsAgreed, *step.ExpectAgreed))
		}
		if step.ExpectValue != nil && math.Abs(d.FinalValue-*step.ExpectValue) > valueTolerance {
			mismatches = append(mismatches, fmt.Sprintf("final_value: got %g, want %g", d.FinalValue, *step.ExpectValue))
		}

		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		results = append(results, StepResult{
			Index:      i,
			Name:       name,
			Got:        d,
			Match:      len(mismatches) == 0,
			Mismatches: mismatches,
		})
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []StepResult) Summary {
	s := Summary{
		TotalSteps: len(results),
		ByStatus:   make(map[string]int),
	}
	for _, r := range results {
		if r.Match {
			s.Matched++
		} else {
			s.Mismatched++
		}
		s.ByStatus[r.Got.Status.String()]++
	}
	return s
}

// #endregion replay
