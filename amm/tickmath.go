// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import "math/big"

// sqrtRatioMagics[i] is sqrt(1.0001^-(2^i)) in Q128. The product over
// the set bits of |tick| gives the ratio for the negative tick, which
// is inverted for positive ticks.
var sqrtRatioMagics = [20]*big.Int{
	mustBig("fffcb933bd6fad37aa2d162d1a594001"),
	mustBig("fff97272373d413259a46990580e213a"),
	mustBig("fff2e50f5f656932ef12357cf3c7fdcc"),
	mustBig("ffe5caca7e10e4e61c3624eaa0941cd0"),
	mustBig("ffcb9843d60f6159c9db58835c926644"),
	mustBig("ff973b41fa98c081472e6896dfb254c0"),
	mustBig("ff2ea16466c96a3843ec78b326b52861"),
	mustBig("fe5dee046a99a2a811c461f1969c3053"),
	mustBig("fcbe86c7900a88aedcffc83b479aa3a4"),
	mustBig("f987a7253ac413176f2b074cf7815e54"),
	mustBig("f3392b0822b70005940c7a398e4b70f3"),
	mustBig("e7159475a2c29b7443b29c7fa6e889d9"),
	mustBig("d097f3bdfd2022b8845ad8f792aa5825"),
	mustBig("a9f746462d870fdf8a65dc1f90e061e5"),
	mustBig("70d869a156d2a1b890bb3df62baf32f7"),
	mustBig("31be135f97d08fd981231505542fcfa6"),
	mustBig("9aa508b5b7a84e1c677de54f3e99bc9"),
	mustBig("5d6af8dedb81196699c329225ee604"),
	mustBig("2216e584f5fa1ea926041bedfe98"),
	mustBig("48a170391f7dc42444e8fa2"),
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func mustBig(hex string) *big.Int {
	v, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("bad sqrt ratio constant: " + hex)
	}
	return v
}

// TickToSqrtPriceX96 converts a tick to a sqrt price in Q64.96 format.
// sqrtPrice = sqrt(1.0001^tick) * 2^96.
func TickToSqrtPriceX96(tick int24) *big.Int {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	if absTick > MaxTick {
		absTick = MaxTick
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	for i, magic := range sqrtRatioMagics {
		if int(absTick)&(1<<i) != 0 {
			ratio.Mul(ratio, magic)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the inverse mapping stays consistent
	// at tick boundaries.
	ratio.Add(ratio, big.NewInt(0xFFFFFFFF))
	ratio.Rsh(ratio, 32)

	if ratio.Cmp(MinSqrtRatio) < 0 {
		return new(big.Int).Set(MinSqrtRatio)
	}
	if ratio.Cmp(MaxSqrtRatio) > 0 {
		return new(big.Int).Set(MaxSqrtRatio)
	}
	return ratio
}

// SqrtPriceX96ToTick converts a sqrt price to the greatest tick whose
// sqrt price is at most the argument, by binary search against
// TickToSqrtPriceX96.
func SqrtPriceX96ToTick(sqrtPriceX96 *big.Int) int24 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}

	if sqrtPriceX96.Cmp(MinSqrtRatio) <= 0 {
		return MinTick
	}
	if sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return MaxTick
	}

	low := MinTick
	high := MaxTick
	for low < high {
		mid := low + (high-low+1)/2
		if TickToSqrtPriceX96(mid).Cmp(sqrtPriceX96) <= 0 {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low
}
