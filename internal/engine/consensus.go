package engine

import "sort"

// #region vote
// voteResult carries the outcome of a sign-consensus vote. value is the
// arithmetic mean of the agreeing raw values and is meaningful only when ok.
type voteResult struct {
	ok     bool
	agreed int
	value  float64
}

// voteSignConsensus determines whether a directional consensus exists among
// the filtered signals. The reference direction is the sign of the median raw
// value, taking the element at index n/2 of the ascending-sorted values (the
// higher of the two middle elements for even n) with values >= 0 counting as
// positive. Consensus requires both the agreeing fraction to reach the
// configured threshold and the agreeing count to reach MinModelsRequired.
// On failure the agreeing count is still reported for diagnostics.
func voteSignConsensus(filtered []ModelSignal, cfg Config) voteResult {
	if len(filtered) < cfg.MinModelsRequired {
		return voteResult{}
	}

	values := make([]float64, len(filtered))
	for i, s := range filtered {
		values[i] = s.Value
	}
	sort.Float64s(values)
	positive := values[len(values)/2] >= 0

	var agreed int
	var sum float64
	for _, s := range filtered {
		if (s.Value >= 0) == positive {
			agreed++
			sum += s.Value
		}
	}

	fraction := float64(agreed) / float64(len(filtered))
	if fraction < cfg.SignAgreementThreshold || agreed < cfg.MinModelsRequired {
		return voteResult{agreed: agreed}
	}
	return voteResult{ok: true, agreed: agreed, value: sum / float64(agreed)}
}

// #endregion vote
