// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniformCurveConvert(t *testing.T) {
	params := CurveParams{TickLower: 0, TickUpper: 600, NumPositions: 3}
	amount := big.NewInt(1_000_000_001)

	buckets, err := UniformCurve{}.Convert(params, 60, amount)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	// Contiguous coverage of the full range.
	require.Equal(t, int32(0), buckets[0].TickLower)
	for i := 1; i < len(buckets); i++ {
		require.Equal(t, buckets[i-1].TickUpper, buckets[i].TickLower)
	}
	require.Equal(t, int32(600), buckets[len(buckets)-1].TickUpper)

	// Boundaries land on spacing multiples and every bucket has width.
	total := new(big.Int)
	for _, b := range buckets {
		require.Zero(t, b.TickLower%60)
		require.Zero(t, b.TickUpper%60)
		require.Less(t, b.TickLower, b.TickUpper)
		total.Add(total, b.Amount)
	}

	// The truncation remainder lands in the last bucket.
	require.Equal(t, amount, total)
	require.Equal(t, big.NewInt(333_333_333), buckets[0].Amount)
	require.Equal(t, big.NewInt(333_333_335), buckets[2].Amount)
}

func TestUniformCurveSinglePosition(t *testing.T) {
	buckets, err := UniformCurve{}.Convert(CurveParams{TickLower: -120, TickUpper: 120, NumPositions: 1}, 60, big.NewInt(500))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, int32(-120), buckets[0].TickLower)
	require.Equal(t, int32(120), buckets[0].TickUpper)
	require.Equal(t, big.NewInt(500), buckets[0].Amount)
}

func TestUniformCurveValidation(t *testing.T) {
	amount := big.NewInt(1000)
	tests := []struct {
		name    string
		params  CurveParams
		spacing int32
		amount  *big.Int
	}{
		{"inverted bounds", CurveParams{TickLower: 600, TickUpper: 0, NumPositions: 1}, 60, amount},
		{"misaligned lower", CurveParams{TickLower: 30, TickUpper: 600, NumPositions: 1}, 60, amount},
		{"misaligned upper", CurveParams{TickLower: 0, TickUpper: 630, NumPositions: 1}, 60, amount},
		{"zero positions", CurveParams{TickLower: 0, TickUpper: 600, NumPositions: 0}, 60, amount},
		{"too many positions", CurveParams{TickLower: 0, TickUpper: 120, NumPositions: 3}, 60, amount},
		{"bad spacing", CurveParams{TickLower: 0, TickUpper: 600, NumPositions: 1}, 0, amount},
		{"zero amount", CurveParams{TickLower: 0, TickUpper: 600, NumPositions: 1}, 60, big.NewInt(0)},
		{"nil amount", CurveParams{TickLower: 0, TickUpper: 600, NumPositions: 1}, 60, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UniformCurve{}.Convert(tt.params, tt.spacing, tt.amount)
			require.ErrorIs(t, err, ErrInvalidCurve)
		})
	}
}
