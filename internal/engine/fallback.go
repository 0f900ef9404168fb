package engine

// #region stabilizer
// stabilizer keeps a FIFO window of recent successful final values and turns
// them into a conservative, magnitude-capped fallback. Each engine owns its
// stabilizer exclusively; there is no shared window state.
type stabilizer struct {
	window []float64
	size   int
	scale  float64
}

func newStabilizer(size int, scale float64) *stabilizer {
	return &stabilizer{window: make([]float64, 0, size), size: size, scale: scale}
}

// current returns sign(mean(window)) * scale, conveying recent directional
// bias but never magnitude. An empty window yields exactly 0: with no prior
// successful decision there is no bias to lean on.
func (st *stabilizer) current() float64 {
	if len(st.window) == 0 {
		return 0
	}
	var sum float64
	for _, v := range st.window {
		sum += v
	}
	if sum/float64(len(st.window)) >= 0 {
		return st.scale
	}
	return -st.scale
}

// record appends a successful final value, evicting the oldest beyond capacity.
func (st *stabilizer) record(v float64) {
	st.window = append(st.window, v)
	if len(st.window) > st.size {
		st.window = st.window[1:]
	}
}

// seed replaces the window contents, oldest first, keeping at most size values.
func (st *stabilizer) seed(values []float64) {
	st.window = st.window[:0]
	for _, v := range values {
		st.record(v)
	}
}

// resize adjusts capacity and scale, trimming the oldest entries if the
// window shrank.
func (st *stabilizer) resize(size int, scale float64) {
	st.size = size
	st.scale = scale
	if excess := len(st.window) - size; excess > 0 {
		st.window = st.window[excess:]
	}
}

func (st *stabilizer) reset() {
	st.window = st.window[:0]
}

func (st *stabilizer) len() int { return len(st.window) }

// #endregion stabilizer
