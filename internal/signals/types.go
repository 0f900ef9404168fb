package signals

// #region model-spec

// ModelSpec describes one synthetic model feed: how tightly it tracks the
// regime and how much conviction it reports.
type ModelSpec struct {
	ID              int
	Noise           float64 // stddev of the value around the regime
	ConfidenceFloor float64
	ConfidenceRange float64 // confidence is drawn from [floor, floor+range)
}

// #endregion model-spec

// #region config

// ProducerConfig holds tuning knobs for the synthetic feed.
type ProducerConfig struct {
	Regime               float64 // starting drift shared by all models
	RegimeFlipEvery      int     // ticks between sign flips of the regime
	ConsensusBreakEvery  int     // ticks between contrarian swings
	ConfidenceCrashEvery int     // ticks between collective conviction drops
	CrashFactor          float64 // confidence multiplier during a crash
	Models               []ModelSpec
}

// DefaultProducerConfig returns three feeds with distinct personalities: a
// steady fundamental model (0), a noisier technical model (1), and an
// erratic sentiment model (2).
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Regime:               0.04,
		RegimeFlipEvery:      50,
		ConsensusBreakEvery:  17,
		ConfidenceCrashEvery: 23,
		CrashFactor:          0.2,
		Models: []ModelSpec{
			{ID: 0, Noise: 0.01, ConfidenceFloor: 0.75, ConfidenceRange: 0.2},
			{ID: 1, Noise: 0.03, ConfidenceFloor: 0.55, ConfidenceRange: 0.35},
			{ID: 2, Noise: 0.06, ConfidenceFloor: 0.3, ConfidenceRange: 0.5},
		},
	}
}

// #endregion config
