package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/engine"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description  string         `json:"description"`
	Config       *FixtureConfig `json:"config,omitempty"` // nil selects engine defaults
	SeedFallback []float64      `json:"seed_fallback,omitempty"`
	Steps        []FixtureStep  `json:"steps"`
}

// FixtureConfig mirrors engine.Config with JSON tags.
type FixtureConfig struct {
	MinConfidence          float64 `json:"min_confidence"`
	GraceConfidence        float64 `json:"grace_confidence"`
	MinModelsRequired      int     `json:"min_models_required"`
	SignAgreementThreshold float64 `json:"sign_agreement_threshold"`
	FallbackWindowSize     int     `json:"fallback_window_size"`
	FallbackPositionScale  float64 `json:"fallback_position_scale"`
	MaxModelCount          int     `json:"max_model_count"`
}

// FixtureStep is one recorded invocation: its input signals and the expected
// outcome facets. Status, fallback flag, and agreed count are deterministic
// given signals and config; the final value is asserted only for valid
// decisions, where it does not depend on prior window state.
type FixtureStep struct {
	Name           string               `json:"name,omitempty"`
	Signals        []engine.ModelSignal `json:"signals"`
	ExpectStatus   string               `json:"expect_status,omitempty"`
	ExpectFallback *bool                `json:"expect_fallback,omitempty"`
	ExpectAgreed   *int                 `json:"expect_agreed,omitempty"`
	ExpectValue    *float64             `json:"expect_value,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("fixture %s has no steps", path)
	}
	return &f, nil
}

// ToEngineConfig converts a FixtureConfig to the engine's config type.
func (fc *FixtureConfig) ToEngineConfig() engine.Config {
	return engine.Config{
		MinConfidence:          fc.MinConfidence,
		GraceConfidence:        fc.GraceConfidence,
		MinModelsRequired:      fc.MinModelsRequired,
		SignAgreementThreshold: fc.SignAgreementThreshold,
		FallbackWindowSize:     fc.FallbackWindowSize,
		FallbackPositionScale:  fc.FallbackPositionScale,
		MaxModelCount:          fc.MaxModelCount,
	}
}

// ConfigFromEngine converts an engine config to its fixture form.
func ConfigFromEngine(ec engine.Config) FixtureConfig {
	return FixtureConfig{
		MinConfidence:          ec.MinConfidence,
		GraceConfidence:        ec.GraceConfidence,
		MinModelsRequired:      ec.MinModelsRequired,
		SignAgreementThreshold: ec.SignAgreementThreshold,
		FallbackWindowSize:     ec.FallbackWindowSize,
		FallbackPositionScale:  ec.FallbackPositionScale,
		MaxModelCount:          ec.MaxModelCount,
	}
}

// #endregion fixture-loader

// #region fixture-export

// FromRows builds a fixture from archived rows, expecting each decision's
// status facets to reproduce. Rows must be in chain order (ListRun order).
func FromRows(description string, cfg engine.Config, rows []archive.Row) *Fixture {
	fc := ConfigFromEngine(cfg)
	f := &Fixture{
		Description: description,
		Config:      &fc,
	}
	for _, row := range rows {
		d := row.Record.Decision
		step := FixtureStep{
			Name:         fmt.Sprintf("decision-%d", row.Record.DecisionID),
			Signals:      row.Signals,
			ExpectStatus: d.Status.String(),
		}
		fallback := d.FallbackUsed
		step.ExpectFallback = &fallback
		agreed := d.ModelsAgreed
		step.ExpectAgreed = &agreed
		if d.Status == engine.StatusValid {
			value := d.FinalValue
			step.ExpectValue = &value
		}
		f.Steps = append(f.Steps, step)
	}
	return f
}

// #endregion fixture-export
