// Package approx provides tolerance-based float comparisons used for every
// size and PR test in the model.
package approx

// Epsilon is the absolute tolerance for all size and ratio comparisons.
// Relative sizes are O(1), so an absolute bound is sufficient.
const Epsilon = 1e-7

// Zero reports whether x is within Epsilon of zero.
func Zero(x float64) bool {
	return x > -Epsilon && x < Epsilon
}

// GT reports whether a is greater than b by more than Epsilon.
func GT(a, b float64) bool {
	return a-b > Epsilon
}

// LT reports whether a is less than b by more than Epsilon.
func LT(a, b float64) bool {
	return b-a > Epsilon
}

// Eq reports whether a and b are within Epsilon of each other.
func Eq(a, b float64) bool {
	return Zero(a - b)
}

// GE reports whether a is not less than b.
func GE(a, b float64) bool {
	return !LT(a, b)
}

// LE reports whether a is not greater than b.
func LE(a, b float64) bool {
	return !GT(a, b)
}
