package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds n up to the next multiple of alignment, which must be a power of two.
func AlignUp[T constraints.Unsigned | constraints.Signed](n, alignment T) T {
	return (n + alignment - 1) &^ (alignment - 1)
}
