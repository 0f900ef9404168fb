package engine

import (
	"encoding/json"
	"math"
	"testing"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func confSigs(confidence float64, values ...float64) []ModelSignal {
	out := make([]ModelSignal, len(values))
	for i, v := range values {
		out[i] = ModelSignal{Value: v, Confidence: confidence, ModelID: i}
	}
	return out
}

func TestDecideNoSignals(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide(nil)

	if d.Status != StatusErrorNoModels {
		t.Fatalf("expected ERROR status, got %s", d.Status)
	}
	if d.FinalValue != 0 || d.Confidence != 0 {
		t.Fatalf("expected zero-valued output, got value=%f conf=%f", d.FinalValue, d.Confidence)
	}
	if d.FallbackUsed {
		t.Fatal("no-input decision must not use fallback")
	}
	if d.TimestampNs == 0 {
		t.Fatal("expected timestamp stamped at entry")
	}
}

func TestDecideSingleSignalBelowMinModels(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide([]ModelSignal{{Value: 0.05, Confidence: 0.85, ModelID: 0}})

	if d.Status != StatusRejectedConsensus {
		t.Fatalf("expected REJECTED_CONSENSUS, got %s", d.Status)
	}
	if !d.FallbackUsed {
		t.Fatal("expected fallback")
	}
	if d.ModelsAgreed != 0 {
		t.Fatalf("expected 0 agreeing on size failure, got %d", d.ModelsAgreed)
	}
	// Empty window: fallback value is exactly 0
	if d.FinalValue != 0 {
		t.Fatalf("expected fallback 0 with empty window, got %f", d.FinalValue)
	}
	if d.Confidence != 0.2 {
		t.Fatalf("expected fixed confidence 0.2, got %f", d.Confidence)
	}
}

func TestDecideConsensus(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide(confSigs(0.9, 0.05, 0.04, 0.06))

	if d.Status != StatusValid {
		t.Fatalf("expected VALID, got %s: %s", d.Status, d.Reasoning)
	}
	if d.ModelsAgreed != 3 {
		t.Fatalf("expected 3 agreeing, got %d", d.ModelsAgreed)
	}
	if len(d.ContributingModels) != 3 {
		t.Fatalf("expected 3 contributing models, got %d", len(d.ContributingModels))
	}
	for i, id := range d.ContributingModels {
		if id != i {
			t.Errorf("contributing model %d: expected id %d, got %d", i, i, id)
		}
	}
	// tanh(0.05 * 100) = tanh(5) = 0.99990920...
	if math.Abs(d.FinalValue-0.9999092) > 1e-6 {
		t.Errorf("expected final value ~0.9999092, got %f", d.FinalValue)
	}
	// mean of filtered confidences: all 0.9
	if math.Abs(d.Confidence-0.9) > 1e-9 {
		t.Errorf("expected confidence 0.9, got %f", d.Confidence)
	}
	if d.FallbackUsed {
		t.Fatal("valid decision must not use fallback")
	}
}

func TestDecideMixedSignsConsensus(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide(confSigs(0.9, 0.05, -0.04, 0.06))

	if d.Status != StatusValid {
		t.Fatalf("expected VALID at 2/3 agreement, got %s", d.Status)
	}
	if d.ModelsAgreed != 2 {
		t.Fatalf("expected 2 agreeing, got %d", d.ModelsAgreed)
	}
	// consensus value (0.05+0.06)/2 = 0.055, squashed
	want := math.Tanh(0.055 * 100)
	if math.Abs(d.FinalValue-want) > 1e-12 {
		t.Errorf("expected final value %f, got %f", want, d.FinalValue)
	}
	// Contributing lists every filtered signal, not only the agreeing two
	if len(d.ContributingModels) != 3 {
		t.Fatalf("expected 3 contributing models, got %d", len(d.ContributingModels))
	}
}

func TestDecideAllLowConfidence(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide(confSigs(0.20, 0.5, 0.6, 0.7))

	if d.Status != StatusRejectedConfidence {
		t.Fatalf("expected REJECTED_CONFIDENCE, got %s", d.Status)
	}
	if d.Confidence != 0.1 {
		t.Fatalf("expected fixed confidence 0.1, got %f", d.Confidence)
	}
	if !d.FallbackUsed {
		t.Fatal("expected fallback")
	}
	if len(d.ContributingModels) != 0 {
		t.Fatalf("rejected decision must not list contributing models, got %v", d.ContributingModels)
	}
}

func TestDecideBoundedOutput(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	d := e.Decide(confSigs(0.9, 1e9, 2e9, 3e9))

	if d.Status != StatusValid {
		t.Fatalf("expected VALID, got %s", d.Status)
	}
	if d.FinalValue <= -1 || d.FinalValue >= 1 {
		t.Fatalf("final value must lie strictly inside (-1, 1), got %f", d.FinalValue)
	}
}

func TestDecideGraceDegradedConfidenceAveraging(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	signals := []ModelSignal{
		{Value: 0.05, Confidence: 0.30, ModelID: 0}, // grace: degrades to 0.24
		{Value: 0.06, Confidence: 0.90, ModelID: 1},
	}

	d := e.Decide(signals)

	if d.Status != StatusValid {
		t.Fatalf("expected VALID, got %s", d.Status)
	}
	// (0.24 + 0.90) / 2 = 0.57
	if math.Abs(d.Confidence-0.57) > 1e-9 {
		t.Errorf("expected mean degraded confidence 0.57, got %f", d.Confidence)
	}
}

func TestDecideFallbackReflectsPriorSuccess(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	// One successful positive decision seeds the window
	d1 := e.Decide(confSigs(0.9, 0.05, 0.04))
	if d1.Status != StatusValid {
		t.Fatalf("setup decision failed: %s", d1.Status)
	}

	// Then everything fails confidence: fallback carries the positive bias
	d2 := e.Decide(confSigs(0.05, -0.9, -0.8))
	if d2.Status != StatusRejectedConfidence {
		t.Fatalf("expected REJECTED_CONFIDENCE, got %s", d2.Status)
	}
	if d2.FinalValue != 0.1 {
		t.Fatalf("expected fallback +0.1, got %f", d2.FinalValue)
	}
}

func TestDecideFallbackSignConsistency(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SeedFallback(-0.9, -0.8, -0.7)

	d := e.Decide(confSigs(0.05, 0.5))

	if d.FinalValue != -0.1 {
		t.Fatalf("expected fallback -0.1 from negative window, got %f", d.FinalValue)
	}
}

func TestDecideOnlySuccessFeedsWindow(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	e.Decide(nil)                          // error
	e.Decide(confSigs(0.05, 0.5, 0.5))     // rejected confidence
	e.Decide(confSigs(0.9, 0.5, -0.5))     // rejected consensus (1/2 = 0.5 < 0.66)
	if e.WindowLen() != 0 {
		t.Fatalf("failed decisions must not feed the window, got len %d", e.WindowLen())
	}

	e.Decide(confSigs(0.9, 0.5, 0.5))
	if e.WindowLen() != 1 {
		t.Fatalf("expected window len 1 after success, got %d", e.WindowLen())
	}
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.Decide(confSigs(0.9, 0.5, 0.5))

	e.Reset()

	if e.WindowLen() != 0 {
		t.Fatalf("expected empty window after reset, got %d", e.WindowLen())
	}
	if e.FallbackValue() != 0 {
		t.Fatalf("expected fallback 0 after reset, got %f", e.FallbackValue())
	}
}

func TestSetConfigShrinksWindow(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.SeedFallback(-1, -1, 0.5, 0.5)

	cfg := DefaultConfig()
	cfg.FallbackWindowSize = 2
	if err := e.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	if e.WindowLen() != 2 {
		t.Fatalf("expected window trimmed to 2, got %d", e.WindowLen())
	}
	// Oldest (-1, -1) trimmed; remaining bias is positive
	if e.FallbackValue() != 0.1 {
		t.Fatalf("expected +0.1 after trim, got %f", e.FallbackValue())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GraceConfidence = 0.5 // above MinConfidence 0.35

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for grace above min confidence")
	}

	cfg = DefaultConfig()
	cfg.MinModelsRequired = 0
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for zero min models")
	}

	cfg = DefaultConfig()
	cfg.SignAgreementThreshold = 1.5
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for threshold above 1")
	}

	cfg = DefaultConfig()
	cfg.FallbackWindowSize = 0
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for zero window size")
	}
}

func TestStatusWireStrings(t *testing.T) {
	cases := map[Status]string{
		StatusValid:              "VALID",
		StatusRejectedConfidence: "REJECTED_CONFIDENCE",
		StatusRejectedConsensus:  "REJECTED_CONSENSUS",
		StatusFallback:           "FALLBACK",
		StatusErrorNoModels:      "ERROR",
	}
	for status, want := range cases {
		if status.String() != want {
			t.Errorf("expected %s, got %s", want, status.String())
		}
		parsed, err := ParseStatus(want)
		if err != nil {
			t.Errorf("ParseStatus(%s): %v", want, err)
		}
		if parsed != status {
			t.Errorf("round trip failed for %s", want)
		}
	}

	if _, err := ParseStatus("bogus"); err == nil {
		t.Fatal("expected error for unknown status string")
	}
}

func TestDecisionJSONStatusIsString(t *testing.T) {
	d := Decision{Status: StatusRejectedConsensus, Reasoning: "x"}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["status"] != "REJECTED_CONSENSUS" {
		t.Fatalf("expected wire string status, got %v", m["status"])
	}

	var back Decision
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal decision: %v", err)
	}
	if back.Status != StatusRejectedConsensus {
		t.Fatalf("expected status round trip, got %s", back.Status)
	}
}
