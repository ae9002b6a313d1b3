package amm

import (
	"github.com/holiman/uint256"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// The curve holds reserves R and outcome supplies YES, NO to the invariant
//
//	R = sqrt(YES^2 + NO^2)
//
// which makes each side's price A/R an L2-normalized probability-like value:
// (YES/R)^2 + (NO/R)^2 = 1. At balanced supplies the fair price is 1/sqrt(2),
// about 0.707, not 0.5. All functions here are pure; callers pass in the
// ledger's current values and apply results back themselves.

// NeutralPriceBps is returned for a market with no liquidity.
const NeutralPriceBps = 5000

// priceCapBps bounds reported prices at par. Only reachable when the caller
// passes a supply/reserve pair that violates the invariant.
const priceCapBps = 10000

// TokensToMint computes how many outcome tokens a collateral deposit buys:
// solve the invariant for the target supply at the increased reserves and
// mint the difference.
//
//	newR = R + L
//	newA = sqrt(newR^2 - B^2)
//	out  = newA - A
func TokensToMint(reserves, targetSupply, otherSupply, collateralIn uint64) (uint64, error) {
	if reserves == 0 || collateralIn == 0 {
		return 0, domain.ErrInvalidReserves
	}

	r := scaleDown(reserves)
	a := scaleDown(targetSupply)
	b := scaleDown(otherSupply)
	l := scaleDown(collateralIn)

	newR := uint256.NewInt(r)
	newR.AddUint64(newR, l)

	newRSq := new(uint256.Int).Mul(newR, newR)
	bSq := new(uint256.Int).Mul(uint256.NewInt(b), uint256.NewInt(b))

	if newRSq.Lt(bSq) {
		return 0, domain.ErrInvalidSupplies
	}

	newASq := new(uint256.Int).Sub(newRSq, bSq)
	newA := Isqrt(newASq)

	if !newA.GtUint64(a) {
		// The deposit was too small relative to the precision scale to move
		// the curve. A boundary condition, not an arithmetic fault.
		return 0, domain.ErrNoTokensToMint
	}

	tokensOut := newA.SubUint64(newA, a)
	return scaleUp(tokensOut)
}

// ReserveToRelease computes how much collateral burning outcome tokens
// frees up: solve the invariant for reserves at the reduced supply and
// release the difference.
//
//	newA = A - burn
//	newR = sqrt(newA^2 + B^2)
//	out  = R - newR
func ReserveToRelease(reserves, targetSupply, otherSupply, tokensToBurn uint64) (uint64, error) {
	if tokensToBurn == 0 {
		return 0, domain.ErrInvalidReserves
	}
	if tokensToBurn > targetSupply {
		return 0, domain.ErrInsufficientTokens
	}

	r := scaleDown(reserves)
	a := scaleDown(targetSupply)
	b := scaleDown(otherSupply)
	burn := scaleDown(tokensToBurn)

	if burn > a {
		// Scaled burn can exceed the scaled supply only through rounding of
		// near-equal inputs; treat it like the unscaled precondition.
		return 0, domain.ErrInsufficientTokens
	}

	newA := uint256.NewInt(a - burn)
	newASq := new(uint256.Int).Mul(newA, newA)
	bSq := new(uint256.Int).Mul(uint256.NewInt(b), uint256.NewInt(b))

	newRSq := new(uint256.Int).Add(newASq, bSq)
	newR := Isqrt(newRSq)

	// The invariant guarantees r >= newR for a consistent state, but floor
	// rounding can produce a one-unit discrepancy; clamp instead of
	// underflowing.
	out := new(uint256.Int)
	if rr := uint256.NewInt(r); rr.Gt(newR) {
		out.Sub(rr, newR)
	}
	return scaleUp(out)
}

// Price returns the instantaneous price of one side in basis points:
// floor(A * 10000 / R) on scaled values. An empty market quotes the neutral
// 5000 rather than faulting on the zero denominator.
func Price(reserves, targetSupply uint64) uint64 {
	if reserves == 0 {
		return NeutralPriceBps
	}

	r := scaleDown(reserves)
	a := scaleDown(targetSupply)
	if r == 0 {
		return NeutralPriceBps
	}

	bps := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(priceCapBps))
	bps.Div(bps, uint256.NewInt(r))
	if !bps.IsUint64() || bps.Uint64() > priceCapBps {
		return priceCapBps
	}
	return bps.Uint64()
}

// Prices returns both sides' prices in basis points. Under the Pythagorean
// invariant each side's price is a function of its own supply and the total
// reserves alone; the two do not sum to 10000.
func Prices(reserves, yesSupply, noSupply uint64) (yesBps, noBps uint64) {
	return Price(reserves, yesSupply), Price(reserves, noSupply)
}

// SeedSupply returns the balanced initial supply for both sides given
// initial liquidity L: isqrt(L^2 / 2), i.e. YES = NO ~= L/sqrt(2), which
// satisfies the invariant at creation.
func SeedSupply(initialLiquidity uint64) uint64 {
	l := uint256.NewInt(initialLiquidity)
	sq := new(uint256.Int).Mul(l, l)
	sq.Rsh(sq, 1)
	return Isqrt(sq).Uint64()
}
