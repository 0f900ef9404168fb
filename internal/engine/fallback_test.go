package engine

import "testing"

func TestFallbackEmptyWindowIsZero(t *testing.T) {
	st := newStabilizer(50, 0.1)

	if got := st.current(); got != 0 {
		t.Fatalf("empty window must yield exactly 0, got %f", got)
	}
}

func TestFallbackPositiveBias(t *testing.T) {
	st := newStabilizer(50, 0.1)
	st.record(0.8)
	st.record(0.5)
	st.record(-0.1)

	// mean is positive, so fallback is +scale
	if got := st.current(); got != 0.1 {
		t.Fatalf("expected +0.1, got %f", got)
	}
}

func TestFallbackNegativeBias(t *testing.T) {
	st := newStabilizer(50, 0.1)
	st.record(-0.8)
	st.record(-0.5)
	st.record(0.1)

	if got := st.current(); got != -0.1 {
		t.Fatalf("expected -0.1, got %f", got)
	}
}

func TestFallbackMagnitudeNeverExceedsScale(t *testing.T) {
	st := newStabilizer(10, 0.1)
	st.record(1e9)
	st.record(1e9)

	if got := st.current(); got != 0.1 {
		t.Fatalf("fallback magnitude must equal scale regardless of window values, got %f", got)
	}
}

func TestFallbackEvictionFIFO(t *testing.T) {
	st := newStabilizer(3, 0.1)
	// Three positives, then three negatives: only the negatives remain
	for _, v := range []float64{1, 1, 1, -5, -5, -5} {
		st.record(v)
		if st.len() > 3 {
			t.Fatalf("window exceeded capacity: %d", st.len())
		}
	}

	if st.len() != 3 {
		t.Fatalf("expected full window of 3, got %d", st.len())
	}
	if got := st.current(); got != -0.1 {
		t.Fatalf("expected -0.1 after eviction of positives, got %f", got)
	}
}

func TestFallbackSeedReplacesWindow(t *testing.T) {
	st := newStabilizer(3, 0.1)
	st.record(1)
	st.seed([]float64{-1, -2, -3, -4})

	// Seed keeps only the most recent 3 values
	if st.len() != 3 {
		t.Fatalf("expected window of 3 after seed, got %d", st.len())
	}
	if got := st.current(); got != -0.1 {
		t.Fatalf("expected -0.1 from seeded window, got %f", got)
	}
}

func TestFallbackResizeTrimsOldest(t *testing.T) {
	st := newStabilizer(4, 0.1)
	for _, v := range []float64{-9, -9, 1, 1} {
		st.record(v)
	}

	st.resize(2, 0.2)

	if st.len() != 2 {
		t.Fatalf("expected 2 after shrink, got %d", st.len())
	}
	// The two oldest (-9, -9) were trimmed; remaining mean is positive
	// and the new scale applies
	if got := st.current(); got != 0.2 {
		t.Fatalf("expected +0.2 after resize, got %f", got)
	}
}

func TestFallbackReset(t *testing.T) {
	st := newStabilizer(5, 0.1)
	st.record(0.5)
	st.reset()

	if st.len() != 0 {
		t.Fatalf("expected empty window after reset, got %d", st.len())
	}
	if got := st.current(); got != 0 {
		t.Fatalf("expected 0 after reset, got %f", got)
	}
}
