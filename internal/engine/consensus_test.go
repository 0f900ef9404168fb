package engine

import (
	"math"
	"testing"
)

func sigs(values ...float64) []ModelSignal {
	out := make([]ModelSignal, len(values))
	for i, v := range values {
		out[i] = ModelSignal{Value: v, Confidence: 0.9, ModelID: i}
	}
	return out
}

func TestVoteBelowMinModels(t *testing.T) {
	cfg := DefaultConfig() // MinModelsRequired = 2

	vote := voteSignConsensus(sigs(0.05), cfg)

	if vote.ok {
		t.Fatal("expected vote to fail below min models")
	}
	if vote.agreed != 0 {
		t.Fatalf("size failure must report 0 agreeing, got %d", vote.agreed)
	}
}

func TestVoteUnanimousPositive(t *testing.T) {
	cfg := DefaultConfig()

	vote := voteSignConsensus(sigs(0.05, 0.04, 0.06), cfg)

	if !vote.ok {
		t.Fatal("expected consensus")
	}
	if vote.agreed != 3 {
		t.Fatalf("expected 3 agreeing, got %d", vote.agreed)
	}
	// mean of raw values: (0.05+0.04+0.06)/3 = 0.05
	if math.Abs(vote.value-0.05) > 1e-9 {
		t.Errorf("expected consensus value 0.05, got %f", vote.value)
	}
}

func TestVoteUnanimousNegative(t *testing.T) {
	cfg := DefaultConfig()

	vote := voteSignConsensus(sigs(-0.05, -0.06, -0.04), cfg)

	if !vote.ok {
		t.Fatal("expected consensus")
	}
	// mean: -0.05
	if math.Abs(vote.value-(-0.05)) > 1e-9 {
		t.Errorf("expected consensus value -0.05, got %f", vote.value)
	}
}

func TestVoteMixedMeetsThreshold(t *testing.T) {
	cfg := DefaultConfig() // threshold 0.66

	// 2 of 3 positive = 0.667 >= 0.66
	vote := voteSignConsensus(sigs(0.05, -0.04, 0.06), cfg)

	if !vote.ok {
		t.Fatal("expected consensus at 2/3 agreement")
	}
	if vote.agreed != 2 {
		t.Fatalf("expected 2 agreeing, got %d", vote.agreed)
	}
	// mean of only the agreeing values: (0.05+0.06)/2 = 0.055
	if math.Abs(vote.value-0.055) > 1e-9 {
		t.Errorf("expected consensus value 0.055, got %f", vote.value)
	}
}

func TestVoteMixedFailsThreshold(t *testing.T) {
	cfg := DefaultConfig()

	// 2 of 4 positive = 0.5 < 0.66; median index 4/2=2 of sorted
	// [-0.06,-0.04,0.05,0.07] is 0.05, so the reference is positive
	vote := voteSignConsensus(sigs(0.05, -0.04, 0.07, -0.06), cfg)

	if vote.ok {
		t.Fatal("expected no consensus at 2/4 agreement")
	}
	if vote.agreed != 2 {
		t.Fatalf("expected insufficient count 2 reported, got %d", vote.agreed)
	}
}

func TestVoteMedianUpperMiddleEvenCount(t *testing.T) {
	cfg := DefaultConfig()

	// sorted: [-0.3, 0.1, 0.2, 0.4], index 2 is 0.2 (the higher middle),
	// so the reference direction is positive; 3/4 = 0.75 >= 0.66
	vote := voteSignConsensus(sigs(0.1, -0.3, 0.4, 0.2), cfg)

	if !vote.ok {
		t.Fatal("expected consensus with upper-middle median")
	}
	if vote.agreed != 3 {
		t.Fatalf("expected 3 agreeing, got %d", vote.agreed)
	}
	// mean of agreeing: (0.1+0.4+0.2)/3 = 0.2333...
	if math.Abs(vote.value-(0.7/3.0)) > 1e-9 {
		t.Errorf("expected consensus value %.6f, got %f", 0.7/3.0, vote.value)
	}
}

func TestVoteZeroCountsPositive(t *testing.T) {
	cfg := DefaultConfig()

	// sorted: [-0.2, 0, 0.1], median index 1 is 0 which counts positive;
	// agreeing are 0 and 0.1 = 2/3
	vote := voteSignConsensus(sigs(0.0, 0.1, -0.2), cfg)

	if !vote.ok {
		t.Fatal("expected consensus with zero-valued median")
	}
	if vote.agreed != 2 {
		t.Fatalf("expected 2 agreeing, got %d", vote.agreed)
	}
	// mean: (0+0.1)/2 = 0.05
	if math.Abs(vote.value-0.05) > 1e-9 {
		t.Errorf("expected consensus value 0.05, got %f", vote.value)
	}
}

func TestVoteFractionPassesButCountFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinModelsRequired = 3

	// 2/3 = 0.667 >= 0.66 but only 2 agreeing < 3 required
	vote := voteSignConsensus(sigs(0.05, -0.04, 0.06), cfg)

	if vote.ok {
		t.Fatal("expected failure when agreeing count is below min models")
	}
	if vote.agreed != 2 {
		t.Fatalf("expected agreeing count 2 reported, got %d", vote.agreed)
	}
}

func TestVoteConfidenceDoesNotWeight(t *testing.T) {
	cfg := DefaultConfig()
	signals := []ModelSignal{
		{Value: 0.1, Confidence: 0.99, ModelID: 0},
		{Value: 0.3, Confidence: 0.36, ModelID: 1},
	}

	vote := voteSignConsensus(signals, cfg)

	if !vote.ok {
		t.Fatal("expected consensus")
	}
	// plain mean, no confidence weighting: (0.1+0.3)/2 = 0.2
	if math.Abs(vote.value-0.2) > 1e-9 {
		t.Errorf("expected unweighted mean 0.2, got %f", vote.value)
	}
}
