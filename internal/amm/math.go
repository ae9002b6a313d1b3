// Package amm implements the Pythagorean bonding curve used to price
// two-outcome prediction markets, together with the overflow-safe integer
// arithmetic it depends on.
package amm

import (
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// PrecisionScale is the fixed-point scale factor. Raw quantities are
// floor-divided by it before any squaring so intermediate values stay well
// inside the working integer width, then results are multiplied back up.
// Three decimal digits of precision relative to the base unit are retained.
const PrecisionScale = 1000

// Isqrt computes floor(sqrt(x)) via Newton's method: starting from
// z0 = (x+1)/2, iterate z = (x/z + z)/2 until the sequence stops decreasing.
// The iterates are monotonically non-increasing and bounded below by
// floor(sqrt(x)), so the loop terminates; convergence is quadratic.
func Isqrt(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}

	z := new(uint256.Int).AddUint64(x, 1)
	z.Rsh(z, 1)
	y := new(uint256.Int).Set(x)

	q := new(uint256.Int)
	for z.Lt(y) {
		y.Set(z)
		q.Div(x, z)
		z.Add(z, q)
		z.Rsh(z, 1)
	}
	return y
}

// IsqrtU64 computes floor(sqrt(x)) for a uint64.
func IsqrtU64(x uint64) uint64 {
	return Isqrt(uint256.NewInt(x)).Uint64()
}

// CheckedAdd returns a+b or domain.ErrOverflow if the sum exceeds uint64.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or domain.ErrOverflow if b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrOverflow
	}
	return diff, nil
}

// MulDiv computes floor(a*b/den) using a 128-bit intermediate product. It
// returns domain.ErrDivisionByZero when den is zero and domain.ErrOverflow
// when the quotient does not fit in a uint64.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, domain.ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// scaleDown floor-divides a raw quantity by the precision scale.
func scaleDown(v uint64) uint64 {
	return v / PrecisionScale
}

// scaleUp multiplies a scaled result back to base units, guarding the
// uint64 range.
func scaleUp(v *uint256.Int) (uint64, error) {
	scaled := new(uint256.Int).Mul(v, uint256.NewInt(PrecisionScale))
	if !scaled.IsUint64() {
		return 0, domain.ErrOverflow
	}
	return scaled.Uint64(), nil
}
