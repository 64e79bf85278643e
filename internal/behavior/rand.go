package behavior

import "math/rand/v2"

// Rand is the source of the interpreter's uniform draws.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func defaultRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// uniform draws from [lo, hi]. Equal bounds return lo without a draw.
func uniform(r Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*r.Float64()
}
