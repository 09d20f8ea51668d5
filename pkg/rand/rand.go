// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package rand provides the run-scoped PCG32 generator threaded through
// the spawner and movement kernel. The simulator never reads from a
// package-level generator: every call site is handed an explicit *Rand
// so that two runs constructed with the same seed produce byte-identical
// output regardless of what else is going on in the process (§5, §9).
package rand

// PCG32 is a small, fast, statistically solid generator (O'Neill 2014).
// Adapted from the well-known reference implementation; kept in its own
// type so its 64 bits of state can be serialized or compared directly.
type PCG32 struct {
	State     uint64
	Increment uint64
}

const (
	pcg32DefaultState     = 0x853c49e6748fea9b
	pcg32DefaultIncrement = 0xda3e39cb94b95bdb
	pcg32Multiplier       = 0x5851f42d4c957f2d
)

// NewPCG32 returns a PCG32 with the library's default seed; callers
// should immediately call Seed with a run-specific value.
func NewPCG32() PCG32 {
	return PCG32{State: pcg32DefaultState, Increment: pcg32DefaultIncrement}
}

// Seed re-seeds the generator from a 64-bit state and sequence selector.
func (p *PCG32) Seed(state, sequence uint64) {
	p.Increment = (sequence << 1) | 1
	p.State = (state+p.Increment)*pcg32Multiplier + p.Increment
}

// Random returns the next pseudo-random uint32.
func (p *PCG32) Random() uint32 {
	oldState := p.State
	p.State = oldState*pcg32Multiplier + p.Increment

	xorShifted := uint32(((oldState >> 18) ^ oldState) >> 27)
	rot := uint32(oldState >> 59)
	return (xorShifted >> rot) | (xorShifted << ((-rot) & 31))
}

// Bounded returns a uniform pseudo-random value in [0, bound).
func (p *PCG32) Bounded(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	threshold := -bound % bound
	for {
		r := p.Random()
		if r >= threshold {
			return r % bound
		}
	}
}

// Rand is the run-scoped random source: one instance per simulation
// run, seeded from params.random_seed, and threaded explicitly into
// every component that needs entropy.
type Rand struct {
	PCG32
}

// New returns an unseeded Rand; call Seed before use.
func New() Rand {
	return Rand{PCG32: NewPCG32()}
}

// NewSeeded returns a Rand seeded from the given run seed.
func NewSeeded(seed int64) *Rand {
	r := New()
	r.Seed(uint64(seed))
	return &r
}

// Seed re-seeds the generator from a single run seed.
func (r *Rand) Seed(s uint64) {
	r.PCG32.Seed(s, pcg32DefaultIncrement)
}

// Intn returns a uniform pseudo-random int in [0, n).
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Bounded(uint32(n)))
}

// Float64 returns a uniform pseudo-random float64 in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Random()) / (1 << 32)
}

// Uniform returns a uniform pseudo-random float64 in [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}

// SampleIndexWeighted returns the index of an element chosen with
// probability proportional to the corresponding weight. Weights need
// not sum to 1; a non-positive total returns -1.
func SampleIndexWeighted(r *Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	target := r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}
