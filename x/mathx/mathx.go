// Package mathx holds small generic helpers for firmware fixed-point maths.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// ScaleRound returns round(x*num/den) using 64-bit intermediates.
// Halves round away from zero. den == 0 yields 0.
func ScaleRound[T constraints.Signed](x T, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if den < 0 {
		num, den = -num, -den
	}
	p := int64(x) * num
	if p < 0 {
		return -((-p + den/2) / den)
	}
	return (p + den/2) / den
}
