package engine

// #region filter
// graceDegradeFactor scales the confidence of signals admitted through the
// grace band rather than the primary floor.
const graceDegradeFactor = 0.8

// filterByConfidence returns the subset of signals eligible for voting.
// Signals at or above the primary floor pass unchanged; signals in the grace
// band pass with degraded confidence; the rest are dropped. Input order is
// preserved. Pure function of its inputs and the configuration.
func filterByConfidence(signals []ModelSignal, cfg Config) []ModelSignal {
	filtered := make([]ModelSignal, 0, len(signals))
	for _, s := range signals {
		switch {
		case s.Confidence >= cfg.MinConfidence:
			filtered = append(filtered, s)
		case s.Confidence >= cfg.GraceConfidence:
			s.Confidence *= graceDegradeFactor
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// #endregion filter
