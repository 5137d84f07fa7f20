package systems

// RNG is the random stream consumed by the stochastic rules. *rand.Rand from
// math/rand/v2 satisfies it.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// uniformRange draws an integer uniformly from [lo, hi].
func uniformRange(rng RNG, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
