package metrics

import (
	"math"
	"sync"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region snapshot

// DefaultSampleCap bounds the confidence ring buffer when no explicit
// capacity is configured.
const DefaultSampleCap = 10000

// histogramBound caps the models-agreed histogram keys so a malformed
// count cannot grow the map without limit.
const histogramBound = 1000

// Snapshot is a point-in-time rollup of decision statistics. Counters are
// monotonically non-decreasing until Reset; confidence statistics cover only
// the bounded recent sample window.
type Snapshot struct {
	TotalDecisions      uint64 `json:"total_decisions"`
	ValidDecisions      uint64 `json:"valid_decisions"`
	FallbackActivations uint64 `json:"fallback_activations"`
	RejectedConfidence  uint64 `json:"rejected_confidence"`
	RejectedConsensus   uint64 `json:"rejected_consensus"`
	ErrorNoModels       uint64 `json:"error_no_models"`
	InvalidInputs       uint64 `json:"invalid_inputs"`

	FallbackRate         float64 `json:"fallback_rate"`
	ConsensusFailureRate float64 `json:"consensus_failure_rate"`

	AverageConfidence float64 `json:"average_confidence"`
	MinConfidence     float64 `json:"min_confidence"`
	MaxConfidence     float64 `json:"max_confidence"`
	StddevConfidence  float64 `json:"stddev_confidence"`

	ModelsAgreedHist map[int]uint64 `json:"models_agreed_hist"`

	LastDecisionTimestampNs int64 `json:"last_decision_timestamp_ns"`
	OverflowDetected        bool  `json:"overflow_detected"`
}

// #endregion snapshot

// #region collector

// Collector aggregates decision statistics behind a single mutex. It is safe
// for concurrent use by multiple decision producers; Observe never performs
// I/O, so lock hold time stays short.
type Collector struct {
	mu        sync.Mutex
	snap      Snapshot
	samples   []float64
	sampleCap int
	next      int
}

// NewCollector creates a collector whose confidence window holds at most
// sampleCap values. A non-positive capacity selects DefaultSampleCap.
func NewCollector(sampleCap int) *Collector {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	return &Collector{
		snap:      Snapshot{ModelsAgreedHist: make(map[int]uint64)},
		sampleCap: sampleCap,
	}
}

// Observe folds one decision into the aggregate. Invalid decisions only
// increment InvalidInputs; once overflow has been detected, further valid
// observations are dropped so counters cannot wrap.
func (c *Collector) Observe(d engine.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. Validation: malformed decisions must not corrupt the aggregates.
	if !validDecision(d) {
		c.snap.InvalidInputs++
		return
	}

	// 2. Saturating total. The counter freezes at the ceiling and flags
	// overflow instead of wrapping.
	if c.snap.OverflowDetected {
		return
	}
	if c.snap.TotalDecisions == math.MaxUint64 {
		c.snap.OverflowDetected = true
		return
	}
	c.snap.TotalDecisions++

	// 3. Confidence ring buffer, oldest sample overwritten once full.
	if len(c.samples) < c.sampleCap {
		c.samples = append(c.samples, d.Confidence)
	} else {
		c.samples[c.next] = d.Confidence
		c.next = (c.next + 1) % c.sampleCap
	}

	// 4. Status counters. Both rejection paths count as fallback activity.
	switch d.Status {
	case engine.StatusValid:
		c.snap.ValidDecisions++
	case engine.StatusRejectedConfidence:
		c.snap.RejectedConfidence++
		c.snap.FallbackActivations++
	case engine.StatusRejectedConsensus:
		c.snap.RejectedConsensus++
		c.snap.FallbackActivations++
	case engine.StatusFallback:
		c.snap.FallbackActivations++
	case engine.StatusErrorNoModels:
		c.snap.ErrorNoModels++
	}

	if d.ModelsAgreed < histogramBound {
		c.snap.ModelsAgreedHist[d.ModelsAgreed]++
	}
	c.snap.LastDecisionTimestampNs = d.TimestampNs

	c.recompute()
}

// GetSnapshot returns an atomically consistent copy of the current rollup.
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snap
	snap.ModelsAgreedHist = make(map[int]uint64, len(c.snap.ModelsAgreedHist))
	for k, v := range c.snap.ModelsAgreedHist {
		snap.ModelsAgreedHist[k] = v
	}
	return snap
}

// IsHealthy reports whether the fallback rate is at or below the given
// threshold and no counter overflow has occurred.
func (c *Collector) IsHealthy(maxFallbackRate float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.FallbackRate <= maxFallbackRate && !c.snap.OverflowDetected
}

// SampleCount returns how many confidence samples the window currently holds.
func (c *Collector) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// Reset clears all counters, statistics, and the sample window.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{ModelsAgreedHist: make(map[int]uint64)}
	c.samples = c.samples[:0]
	c.next = 0
}

// #endregion collector

// #region internals

// validDecision applies the intake sanity checks: finite confidence in
// [0,1], a non-zero timestamp, and a non-negative agreement count.
func validDecision(d engine.Decision) bool {
	if math.IsNaN(d.Confidence) || math.IsInf(d.Confidence, 0) {
		return false
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return false
	}
	if d.TimestampNs == 0 {
		return false
	}
	return d.ModelsAgreed >= 0
}

// recompute refreshes derived rates and the confidence statistics over the
// current window contents. Caller holds the mutex.
func (c *Collector) recompute() {
	if c.snap.TotalDecisions > 0 {
		total := float64(c.snap.TotalDecisions)
		c.snap.FallbackRate = float64(c.snap.FallbackActivations) / total
		c.snap.ConsensusFailureRate = float64(c.snap.RejectedConsensus) / total
	}

	n := len(c.samples)
	if n == 0 {
		c.snap.AverageConfidence = 0
		c.snap.MinConfidence = 0
		c.snap.MaxConfidence = 0
		c.snap.StddevConfidence = 0
		return
	}

	sum := 0.0
	min := c.samples[0]
	max := c.samples[0]
	for _, v := range c.samples {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	// Population standard deviation over the window.
	var sq float64
	for _, v := range c.samples {
		dv := v - mean
		sq += dv * dv
	}

	c.snap.AverageConfidence = mean
	c.snap.MinConfidence = min
	c.snap.MaxConfidence = max
	c.snap.StddevConfidence = math.Sqrt(sq / float64(n))
}

// #endregion internals
