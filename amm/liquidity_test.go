// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"testing"
)

func TestLiquidityAmountRoundTrip(t *testing.T) {
	sqrtA := TickToSqrtPriceX96(-600)
	sqrtB := TickToSqrtPriceX96(600)
	amount := big.NewInt(1_000_000_000)

	liq := LiquidityForAmount0(sqrtA, sqrtB, amount)
	if liq.Sign() <= 0 {
		t.Fatalf("liquidity: got %s, want positive", liq)
	}
	back := Amount0ForLiquidity(sqrtA, sqrtB, liq)
	if back.Cmp(amount) > 0 {
		t.Errorf("amount0 back %s exceeds input %s", back, amount)
	}
	loss := new(big.Int).Sub(amount, back)
	if loss.Cmp(big.NewInt(1000)) > 0 {
		t.Errorf("rounding loss %s too large for %s", loss, amount)
	}

	liq1 := LiquidityForAmount1(sqrtA, sqrtB, amount)
	back1 := Amount1ForLiquidity(sqrtA, sqrtB, liq1)
	if back1.Cmp(amount) > 0 {
		t.Errorf("amount1 back %s exceeds input %s", back1, amount)
	}
}

func TestAmountsForLiquidityByPricePosition(t *testing.T) {
	sqrtA := TickToSqrtPriceX96(-600)
	sqrtB := TickToSqrtPriceX96(600)
	liq := big.NewInt(1_000_000_000)

	tests := []struct {
		name  string
		sqrtP *big.Int
		want0 bool
		want1 bool
	}{
		{"below range", TickToSqrtPriceX96(-1200), true, false},
		{"at lower bound", sqrtA, true, false},
		{"inside range", new(big.Int).Set(Q96), true, true},
		{"at upper bound", sqrtB, false, true},
		{"above range", TickToSqrtPriceX96(1200), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a0, a1 := AmountsForLiquidity(tt.sqrtP, sqrtA, sqrtB, liq)
			if (a0.Sign() > 0) != tt.want0 {
				t.Errorf("amount0 %s, want positive=%v", a0, tt.want0)
			}
			if (a1.Sign() > 0) != tt.want1 {
				t.Errorf("amount1 %s, want positive=%v", a1, tt.want1)
			}
		})
	}
}

func TestLiquidityZeroWidthRange(t *testing.T) {
	sqrt := TickToSqrtPriceX96(60)
	if got := LiquidityForAmount0(sqrt, sqrt, big.NewInt(1000)); got.Sign() != 0 {
		t.Errorf("zero width liquidity: got %s, want 0", got)
	}
	if got := Amount1ForLiquidity(sqrt, sqrt, big.NewInt(1000)); got.Sign() != 0 {
		t.Errorf("zero width amount: got %s, want 0", got)
	}
}
