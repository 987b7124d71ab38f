// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Bucket is one contiguous tick range with the asset amount allocated
// to it by a curve converter.
type Bucket struct {
	TickLower int32
	TickUpper int32
	Amount    *big.Int
}

// CurveConverter splits an asset amount across contiguous tick-aligned
// buckets within the curve bounds. Implementations must cover
// [TickLower, TickUpper) exactly, with no gaps or overlaps, and the
// bucket amounts must sum to at most the input amount.
type CurveConverter interface {
	Convert(params CurveParams, tickSpacing int32, amount *big.Int) ([]Bucket, error)
}

// UniformCurve distributes the amount evenly across equally wide
// buckets. Bucket boundaries land on tick-spacing multiples; when the
// range does not divide evenly the widths differ by at most one spacing
// unit, and the amount truncation remainder goes to the last bucket.
type UniformCurve struct{}

var _ CurveConverter = UniformCurve{}

func (UniformCurve) Convert(params CurveParams, tickSpacing int32, amount *big.Int) ([]Bucket, error) {
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("%w: tick spacing %d", ErrInvalidCurve, tickSpacing)
	}
	if params.TickLower >= params.TickUpper {
		return nil, fmt.Errorf("%w: bounds [%d, %d]", ErrInvalidCurve, params.TickLower, params.TickUpper)
	}
	if params.TickLower%tickSpacing != 0 || params.TickUpper%tickSpacing != 0 {
		return nil, fmt.Errorf("%w: bounds not aligned to spacing %d", ErrInvalidCurve, tickSpacing)
	}
	n := params.NumPositions
	if n < 1 {
		return nil, fmt.Errorf("%w: %d positions", ErrInvalidCurve, n)
	}
	units := int64((params.TickUpper - params.TickLower) / tickSpacing)
	if units < int64(n) {
		return nil, fmt.Errorf("%w: %d spacing units for %d positions", ErrInvalidCurve, units, n)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrInvalidCurve)
	}

	totalUnits := decimal.NewFromInt(units)
	count := decimal.NewFromInt(int64(n))
	share := decimal.NewFromBigInt(amount, 0).Div(count).Floor()
	perBucket := share.BigInt()

	buckets := make([]Bucket, n)
	allocated := big.NewInt(0)
	for i := 0; i < n; i++ {
		// Boundary i sits at floor(i * units / n) spacing units above
		// the lower bound.
		lowerUnits := totalUnits.Mul(decimal.NewFromInt(int64(i))).Div(count).Floor().IntPart()
		upperUnits := totalUnits.Mul(decimal.NewFromInt(int64(i + 1))).Div(count).Floor().IntPart()
		buckets[i] = Bucket{
			TickLower: params.TickLower + int32(lowerUnits)*tickSpacing,
			TickUpper: params.TickLower + int32(upperUnits)*tickSpacing,
			Amount:    new(big.Int).Set(perBucket),
		}
		allocated.Add(allocated, perBucket)
	}
	remainder := new(big.Int).Sub(amount, allocated)
	buckets[n-1].Amount.Add(buckets[n-1].Amount, remainder)
	return buckets, nil
}
