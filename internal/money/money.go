// Package money holds the pure monetary arithmetic shared by every
// document coordinator: two-decimal rounding, discount computation and
// installment scheduling with exact-cent reconciliation.
package money

import "math"

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercent treats the value as a percentage of the base.
	DiscountPercent DiscountKind = "percent"
	// DiscountFixed treats the value as a fixed amount.
	DiscountFixed DiscountKind = "fixed"
)

// Round2 rounds to two decimals, half-up on the absolute cent value.
func Round2(v float64) float64 {
	r := math.Floor(math.Abs(v)*100+0.5) / 100
	if v < 0 {
		r = -r
	}
	if r == 0 {
		return 0
	}
	return r
}

// ComputeDiscount returns the discount amount for a base and a
// percent or fixed value. Percent values clamp to [0,100], fixed
// values clamp to [0,base].
func ComputeDiscount(base float64, kind DiscountKind, value float64) float64 {
	switch kind {
	case DiscountFixed:
		if value < 0 {
			value = 0
		}
		if value > base {
			value = base
		}
		return Round2(value)
	default:
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		return Round2(base * value / 100)
	}
}

// Cents converts an amount to integer cents.
func Cents(v float64) int64 {
	return int64(math.Floor(math.Abs(v)*100 + 0.5))
}

// splitCents divides total cents into n shares, floor division with the
// leftover assigned one cent at a time starting from the first share.
// The shares always sum back to the input exactly.
func splitCents(totalCents int64, n int) []int64 {
	shares := make([]int64, n)
	base := totalCents / int64(n)
	leftover := totalCents - base*int64(n)
	for i := range shares {
		shares[i] = base
		if int64(i) < leftover {
			shares[i]++
		}
	}
	return shares
}
