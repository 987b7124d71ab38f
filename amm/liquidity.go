// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import "math/big"

// Concentrated-liquidity amount math over Q64.96 sqrt prices. All
// functions order the two range bounds internally, floor on division,
// and return fresh big.Ints.

// Amount0ForLiquidity returns the currency0 amount held by liquidity
// across [sqrtA, sqrtB]: L * 2^96 * (sqrtB - sqrtA) / (sqrtB * sqrtA).
func Amount0ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	num := new(big.Int).Mul(liquidity, Q96)
	num.Mul(num, new(big.Int).Sub(sqrtB, sqrtA))
	den := new(big.Int).Mul(sqrtB, sqrtA)
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, den)
}

// Amount1ForLiquidity returns the currency1 amount held by liquidity
// across [sqrtA, sqrtB]: L * (sqrtB - sqrtA) / 2^96.
func Amount1ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	num := new(big.Int).Mul(liquidity, new(big.Int).Sub(sqrtB, sqrtA))
	return num.Div(num, Q96)
}

// LiquidityForAmount0 returns the liquidity a currency0 amount buys
// across [sqrtA, sqrtB]: amount * sqrtA * sqrtB / (2^96 * (sqrtB - sqrtA)).
func LiquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount0, sqrtA)
	num.Mul(num, sqrtB)
	den := new(big.Int).Mul(Q96, diff)
	return num.Div(num, den)
}

// LiquidityForAmount1 returns the liquidity a currency1 amount buys
// across [sqrtA, sqrtB]: amount * 2^96 / (sqrtB - sqrtA).
func LiquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount1, Q96)
	return num.Div(num, diff)
}

// AmountsForLiquidity returns the currency amounts held by liquidity
// across [sqrtA, sqrtB] at the current sqrt price.
func AmountsForLiquidity(sqrtP, sqrtA, sqrtB, liquidity *big.Int) (amount0, amount1 *big.Int) {
	sqrtA, sqrtB = orderSqrt(sqrtA, sqrtB)
	switch {
	case sqrtP.Cmp(sqrtA) <= 0:
		// Price below range: all currency0
		return Amount0ForLiquidity(sqrtA, sqrtB, liquidity), big.NewInt(0)
	case sqrtP.Cmp(sqrtB) >= 0:
		// Price above range: all currency1
		return big.NewInt(0), Amount1ForLiquidity(sqrtA, sqrtB, liquidity)
	default:
		return Amount0ForLiquidity(sqrtP, sqrtB, liquidity),
			Amount1ForLiquidity(sqrtA, sqrtP, liquidity)
	}
}

func orderSqrt(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}
