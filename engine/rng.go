package engine

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every draw, enabling save/restore and
// reproducible bot sessions.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Intn returns a random integer in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	r.pos++
	return int(r.src.Int63() % int64(n))
}

// Float returns a random number in [0, 1).
func (r *RNG) Float() float64 {
	r.pos++
	return float64(r.src.Int63()&(1<<53-1)) / (1 << 53)
}

// Chance reports true with probability p, where p is in [0, 1].
func (r *RNG) Chance(p float64) bool {
	return r.Float() < p
}

// Pick returns a random element of items, or "" when items is empty.
func (r *RNG) Pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[r.Intn(len(items))]
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
// Every draw consumes exactly one Int63 from the source, so this
// reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}
