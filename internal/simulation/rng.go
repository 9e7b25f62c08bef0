package simulation

import "math/rand/v2"

// RNG is the randomness a sampler consumes.
type RNG interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// StreamFunc returns the random stream for one path.
// It must be deterministic in (seed, path) and safe to call concurrently.
type StreamFunc func(seed uint64, path int) RNG

// PCGStreams gives each path its own PCG stream keyed by (seed, splitmix64(path)).
// Paths never share state, so the result does not depend on scheduling.
func PCGStreams(seed uint64, path int) RNG {
	return rand.New(rand.NewPCG(seed, splitmix64(uint64(path))))
}

// splitmix64 spreads consecutive path indexes across the stream space.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
