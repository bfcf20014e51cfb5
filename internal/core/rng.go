package core

import (
	"math/rand/v2"
	"time"
)

// RNG is the random source used for transitions, destinations and jitter.
// *rand.Rand from math/rand/v2 satisfies it.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// NewRNG returns a PCG-backed RNG. A zero seed picks one from the clock.
func NewRNG(seed uint64) RNG {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
