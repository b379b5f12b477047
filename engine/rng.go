package engine

import "math/rand"

// RNG is the session's random stream. It draws choice-encounter winners, and
// its seed and draw count are stored in saved progress so a resumed journey
// continues the same stream.
type RNG struct {
	seed int64
	src  *countingSource
	rand *rand.Rand
}

// countingSource counts every value drawn from the underlying source.
// Intn may draw more than once per call, so the count, not the number of
// rolls, is what restore replays.
type countingSource struct {
	src   rand.Source64
	draws int64
}

func (c *countingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func (c *countingSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// NewRNG creates a stream from seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{src: rand.NewSource(seed).(rand.Source64)}
	return &RNG{seed: seed, src: src, rand: rand.New(src)}
}

// Roll returns a random integer in [1, sides]. A die with fewer than one
// side always rolls 1 and does not advance the stream.
func (r *RNG) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	return r.rand.Intn(sides) + 1
}

// Seed returns the seed the stream was created from.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns how many values have been drawn from the source.
func (r *RNG) Position() int64 {
	return r.src.draws
}

// RestoreRNG recreates the stream saved as (seed, position).
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	return rng
}
