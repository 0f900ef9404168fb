package engine

import (
	"encoding/json"
	"fmt"
)

// #region signal
// ModelSignal is one model's raw prediction with its confidence and provenance.
// Passed by value; the engine never mutates caller-owned signals.
type ModelSignal struct {
	Value       float64 `json:"value"`
	Confidence  float64 `json:"confidence"`
	TimestampNs int64   `json:"timestamp_ns,omitempty"`
	ModelID     int     `json:"model_id"`
}

// #endregion signal

// #region status
// Status enumerates the terminal outcomes of one decision pass. The set is
// closed: every decision ends in exactly one of these states.
type Status int

const (
	StatusValid Status = iota
	StatusRejectedConfidence
	StatusRejectedConsensus
	StatusFallback
	StatusErrorNoModels
)

// String returns the wire form used by the audit log and the API.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusRejectedConfidence:
		return "REJECTED_CONFIDENCE"
	case StatusRejectedConsensus:
		return "REJECTED_CONSENSUS"
	case StatusFallback:
		return "FALLBACK"
	case StatusErrorNoModels:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus maps a wire string back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "VALID":
		return StatusValid, nil
	case "REJECTED_CONFIDENCE":
		return StatusRejectedConfidence, nil
	case "REJECTED_CONSENSUS":
		return StatusRejectedConsensus, nil
	case "FALLBACK":
		return StatusFallback, nil
	case "ERROR":
		return StatusErrorNoModels, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalJSON renders the wire string rather than the numeric kind.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the wire string.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// #endregion status

// #region decision
// Decision is the single output of one engine invocation. Immutable after
// return; the audit and metrics layers copy it, never mutate it.
type Decision struct {
	FinalValue         float64 `json:"final_value"`
	Status             Status  `json:"status"`
	Confidence         float64 `json:"confidence"`
	ModelsAgreed       int     `json:"models_agreed"`
	FallbackUsed       bool    `json:"fallback_used"`
	TimestampNs        int64   `json:"timestamp_ns"`
	ContributingModels []int   `json:"contributing_models,omitempty"`
	Reasoning          string  `json:"reasoning"`
}

// #endregion decision

// #region config
// Config holds the thresholds and window sizing for one engine instance.
// Fixed at construction or replaced between decisions via SetConfig; never
// mutated mid-decision.
type Config struct {
	MinConfidence          float64 // primary admission floor
	GraceConfidence        float64 // secondary floor, admits at degraded confidence; must be <= MinConfidence
	MinModelsRequired      int     // minimum filtered signals for a vote
	SignAgreementThreshold float64 // required agreeing fraction, in (0,1]
	FallbackWindowSize     int     // FIFO capacity of the stabilizer window
	FallbackPositionScale  float64 // magnitude of the fallback value
	MaxModelCount          int     // advisory input cap, not enforced
}

// DefaultConfig returns the standard production thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:          0.35,
		GraceConfidence:        0.25,
		MinModelsRequired:      2,
		SignAgreementThreshold: 0.66,
		FallbackWindowSize:     50,
		FallbackPositionScale:  0.1,
		MaxModelCount:          10,
	}
}

// Validate checks the structural constraints the pipeline depends on.
func (c Config) Validate() error {
	if c.GraceConfidence > c.MinConfidence {
		return fmt.Errorf("grace confidence %.4f exceeds min confidence %.4f", c.GraceConfidence, c.MinConfidence)
	}
	if c.MinModelsRequired < 1 {
		return fmt.Errorf("min models required must be >= 1, got %d", c.MinModelsRequired)
	}
	if c.SignAgreementThreshold <= 0 || c.SignAgreementThreshold > 1 {
		return fmt.Errorf("sign agreement threshold must be in (0, 1], got %.4f", c.SignAgreementThreshold)
	}
	if c.FallbackWindowSize < 1 {
		return fmt.Errorf("fallback window size must be >= 1, got %d", c.FallbackWindowSize)
	}
	return nil
}

// #endregion config
