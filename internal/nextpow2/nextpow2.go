// Package nextpow2 provides the next-power-of-two arithmetic helper the
// recycler's drop-mask and tlslot's slot-array sizing depend on. It's deliberately
// tiny: catrate's ring buffer hand-rolls the power-of-two invariant inline
// rather than factoring it out, so this package exists purely to give the
// recycler a single, tested place to compute it.
package nextpow2

import "golang.org/x/exp/constraints"

// Of returns the smallest power of two that is >= n. For n <= 1 it returns 1.
// Panics if the result would overflow T.
func Of[T constraints.Integer](n T) T {
	if n <= 1 {
		return 1
	}
	v := n - 1
	var shift T = 1
	for shift < T(bitSize[T]()) {
		v |= v >> shift
		shift <<= 1
	}
	result := v + 1
	if result <= 0 {
		panic("nextpow2: overflow")
	}
	return result
}

// IsPowerOfTwo reports whether n is a power of two (n must be positive).
func IsPowerOfTwo[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// bitSize returns the bit width of T, used to bound the doubling loop in Of.
func bitSize[T constraints.Integer]() int {
	var zero T
	switch any(zero).(type) {
	case int8, uint8:
		return 8
	case int16, uint16:
		return 16
	case int32, uint32:
		return 32
	default:
		return 64
	}
}
