package domain

import "math/bits"

// Scale is the fixed-point denominator for prices. A price of 1.5 units of
// quote per unit of base is stored as 3*Scale/2. Quantities and settled
// amounts are plain integers in each asset's smallest unit.
const Scale uint64 = 1e18

// MulDivFloor returns floor(a*b/den) using a 128-bit intermediate product.
// It returns ErrAmountOverflow when the quotient does not fit in 64 bits.
func MulDivFloor(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrAmountOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// MulDivCeil returns ceil(a*b/den) using a 128-bit intermediate product.
// It returns ErrAmountOverflow when the quotient does not fit in 64 bits.
func MulDivCeil(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrAmountOverflow
	}
	q, r := bits.Div64(hi, lo, den)
	if r > 0 {
		if q == 1<<64-1 {
			return 0, ErrAmountOverflow
		}
		q++
	}
	return q, nil
}

// Notional returns floor(quantity*price/Scale): the order's value in quote
// units, rounded down the same way fills are.
func Notional(quantity, price uint64) (uint64, error) {
	return MulDivFloor(quantity, price, Scale)
}
