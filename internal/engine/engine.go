package engine

import (
	"fmt"
	"math"
	"time"
)

// smoothingScale is the gain applied before tanh squashing. Consensus values
// are typically small fractions, so the gain keeps the squashed output
// responsive in that range.
const smoothingScale = 100.0

// Fixed confidences reported on the two rejection paths.
const (
	lowConfidenceSignal = 0.1
	noConsensusSignal   = 0.2
)

// #region engine
// Engine converts a set of model signals into a single bounded decision
// through a three-stage pipeline: confidence filter, sign-consensus vote,
// tanh squash. Its only cross-invocation state is the fallback window, so it
// is intended for a single logical owner; callers needing concurrency must
// serialize calls or run independent instances. No internal locking.
type Engine struct {
	cfg Config
	st  *stabilizer
}

// New creates an engine with the given configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{
		cfg: cfg,
		st:  newStabilizer(cfg.FallbackWindowSize, cfg.FallbackPositionScale),
	}, nil
}

// Decide runs the pipeline once and always returns a Decision; every failure
// mode is expressed through Status, never an error.
func (e *Engine) Decide(signals []ModelSignal) Decision {
	now := time.Now().UnixNano()

	// 1. No input at all: an engine that has received nothing should not
	// pretend to have an opinion, so no fallback here.
	if len(signals) == 0 {
		return Decision{
			Status:      StatusErrorNoModels,
			TimestampNs: now,
			Reasoning:   "no model inputs",
		}
	}

	// 2. Confidence filter
	filtered := filterByConfidence(signals, e.cfg)
	if len(filtered) == 0 {
		return Decision{
			FinalValue:   e.st.current(),
			Status:       StatusRejectedConfidence,
			Confidence:   lowConfidenceSignal,
			FallbackUsed: true,
			TimestampNs:  now,
			Reasoning:    "all signals below confidence floor - fallback",
		}
	}

	// 3. Sign-consensus vote
	vote := voteSignConsensus(filtered, e.cfg)
	if !vote.ok {
		return Decision{
			FinalValue:   e.st.current(),
			Status:       StatusRejectedConsensus,
			Confidence:   noConsensusSignal,
			ModelsAgreed: vote.agreed,
			FallbackUsed: true,
			TimestampNs:  now,
			Reasoning:    fmt.Sprintf("no sign consensus (%d of %d agreed) - fallback", vote.agreed, len(filtered)),
		}
	}

	// 4. Squash. This is the sole place unbounded numeric input is made safe
	// for downstream consumption: tanh bounds the output to (-1, 1).
	final := math.Tanh(vote.value * smoothingScale)

	var confSum float64
	contributing := make([]int, len(filtered))
	for i, s := range filtered {
		confSum += s.Confidence
		contributing[i] = s.ModelID
	}

	e.st.record(final)

	return Decision{
		FinalValue:         final,
		Status:             StatusValid,
		Confidence:         confSum / float64(len(filtered)),
		ModelsAgreed:       vote.agreed,
		TimestampNs:        now,
		ContributingModels: contributing,
		Reasoning:          fmt.Sprintf("consensus of %d models", vote.agreed),
	}
}

// Reset clears the fallback window.
func (e *Engine) Reset() {
	e.st.reset()
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the configuration between decisions, trimming the
// fallback window if it shrank.
func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	e.cfg = cfg
	e.st.resize(cfg.FallbackWindowSize, cfg.FallbackPositionScale)
	return nil
}

// SeedFallback replaces the fallback window contents, oldest first. Lets a
// replay start from the window state a recorded run had.
func (e *Engine) SeedFallback(values ...float64) {
	e.st.seed(values)
}

// FallbackValue reports the value the stabilizer would currently substitute.
func (e *Engine) FallbackValue() float64 {
	return e.st.current()
}

// WindowLen reports how many successful final values the stabilizer holds.
func (e *Engine) WindowLen() int {
	return e.st.len()
}

// #endregion engine
