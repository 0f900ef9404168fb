package signals

import (
	"math/rand"
	"time"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region producer

// Producer emits deterministic synthetic model signals around a drifting
// regime. Same seed, same sequence.
type Producer struct {
	rng    *rand.Rand
	config ProducerConfig
	regime float64
}

// NewProducer creates a Producer driven by the given RNG.
func NewProducer(rng *rand.Rand, config ProducerConfig) *Producer {
	return &Producer{rng: rng, config: config, regime: config.Regime}
}

// Regime reports the current drift shared by all model feeds.
func (p *Producer) Regime() float64 {
	return p.regime
}

// #endregion producer

// #region produce

// Produce computes the signal batch for one tick.
func (p *Producer) Produce(tick int) []engine.ModelSignal {
	// Flip the regime periodically so the fallback window sees both signs.
	if p.config.RegimeFlipEvery > 0 && tick%p.config.RegimeFlipEvery == 0 {
		p.regime = -p.regime
	}

	now := time.Now().UnixNano()
	batch := make([]engine.ModelSignal, len(p.config.Models))
	for i, m := range p.config.Models {
		batch[i] = engine.ModelSignal{
			Value:       p.regime + p.rng.NormFloat64()*m.Noise,
			Confidence:  m.ConfidenceFloor + p.rng.Float64()*m.ConfidenceRange,
			TimestampNs: now,
			ModelID:     m.ID,
		}
	}

	// Contrarian swing: the last two feeds turn against the regime hard
	// enough to threaten the agreement threshold.
	if p.config.ConsensusBreakEvery > 0 && tick%p.config.ConsensusBreakEvery == 0 && len(batch) >= 2 {
		batch[len(batch)-1].Value = -p.regime * 3
		batch[len(batch)-2].Value = -p.regime * 2
	}

	// Collective conviction drop across every feed.
	if p.config.ConfidenceCrashEvery > 0 && tick%p.config.ConfidenceCrashEvery == 0 {
		for i := range batch {
			batch[i].Confidence *= p.config.CrashFactor
		}
	}

	return batch
}

// #endregion produce
