// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"testing"
)

func TestTickToSqrtPriceX96Zero(t *testing.T) {
	if got := TickToSqrtPriceX96(0); got.Cmp(Q96) != 0 {
		t.Errorf("tick 0: got %s, want %s", got, Q96)
	}
}

func TestTickToSqrtPriceX96Monotonic(t *testing.T) {
	ticks := []int24{MinTick, -887000, -100000, -10000, -600, -60, -1, 0, 1, 60, 600, 10000, 100000, 887000, MaxTick}
	prev := new(big.Int)
	for i, tick := range ticks {
		sqrt := TickToSqrtPriceX96(tick)
		if sqrt.Sign() <= 0 {
			t.Fatalf("tick %d: non-positive sqrt price %s", tick, sqrt)
		}
		if i > 0 && sqrt.Cmp(prev) <= 0 {
			t.Errorf("tick %d: sqrt price %s not greater than previous %s", tick, sqrt, prev)
		}
		prev = sqrt
	}
}

func TestTickToSqrtPriceX96Direction(t *testing.T) {
	// Positive ticks price above 1.0, negative ticks below.
	for _, tick := range []int24{1, 60, 600, 6000, 443636} {
		if got := TickToSqrtPriceX96(tick); got.Cmp(Q96) <= 0 {
			t.Errorf("tick %d: sqrt price %s not above Q96", tick, got)
		}
		if got := TickToSqrtPriceX96(-tick); got.Cmp(Q96) >= 0 {
			t.Errorf("tick %d: sqrt price %s not below Q96", -tick, got)
		}
	}
	if got := SqrtPriceX96ToTick(new(big.Int).Set(Q96)); got != 0 {
		t.Errorf("tick at Q96: got %d, want 0", got)
	}
}

func TestTickToSqrtPriceX96Bounds(t *testing.T) {
	if got := TickToSqrtPriceX96(MinTick); got.Cmp(MinSqrtRatio) != 0 {
		t.Errorf("min tick sqrt %s, want MinSqrtRatio %s", got, MinSqrtRatio)
	}
	if got := TickToSqrtPriceX96(MaxTick); got.Cmp(MaxSqrtRatio) != 0 {
		t.Errorf("max tick sqrt %s, want MaxSqrtRatio %s", got, MaxSqrtRatio)
	}
	// High-bit ticks stay strictly inside the bounds.
	if got := TickToSqrtPriceX96(443636); got.Cmp(MinSqrtRatio) <= 0 || got.Cmp(MaxSqrtRatio) >= 0 {
		t.Errorf("tick 443636: sqrt %s outside open bounds", got)
	}
}

func TestSqrtPriceX96ToTickRoundTrip(t *testing.T) {
	ticks := []int24{-500000, -100000, -50000, -600, -120, -60, -1, 0, 1, 60, 120, 600, 50000, 100000, 500000}
	for _, tick := range ticks {
		sqrt := TickToSqrtPriceX96(tick)
		if got := SqrtPriceX96ToTick(sqrt); got != tick {
			t.Errorf("round trip tick %d: got %d (sqrt %s)", tick, got, sqrt)
		}
	}
}

func TestSqrtPriceX96ToTickBetweenTicks(t *testing.T) {
	// A price strictly between tick 100 and tick 101 resolves to 100.
	lo := TickToSqrtPriceX96(100)
	hi := TickToSqrtPriceX96(101)
	mid := new(big.Int).Add(lo, hi)
	mid.Rsh(mid, 1)
	if got := SqrtPriceX96ToTick(mid); got != 100 {
		t.Errorf("mid price tick: got %d, want 100", got)
	}
}
