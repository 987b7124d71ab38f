// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
	"github.com/stretchr/testify/require"
)

var (
	testAsset     = common.HexToAddress("0x0000000000000000000000000000000000001000")
	testNumeraire = common.HexToAddress("0x0000000000000000000000000000000000002000")
)

// tokenNumeraireKey has the asset in slot 0 and a token numeraire in
// slot 1.
func tokenNumeraireKey() amm.PoolKey {
	return amm.PoolKey{
		Currency0:   amm.Currency{Address: testAsset},
		Currency1:   amm.Currency{Address: testNumeraire},
		TickSpacing: 60,
	}
}

// nativeNumeraireKey has the native numeraire in slot 0 and the asset
// in slot 1.
func nativeNumeraireKey() amm.PoolKey {
	return amm.PoolKey{
		Currency0:   amm.NativeCurrency,
		Currency1:   amm.Currency{Address: testAsset},
		TickSpacing: 60,
	}
}

func TestClassifySwap(t *testing.T) {
	tests := []struct {
		name       string
		key        amm.PoolKey
		zeroForOne bool
		amount     int64
		want       SwapKind
		preFee     bool
	}{
		{"token numeraire, sell asset exact in", tokenNumeraireKey(), true, -100, ExactInAssetForNumeraire, false},
		{"token numeraire, buy numeraire exact out", tokenNumeraireKey(), true, 100, ExactOutAssetForNumeraire, true},
		{"token numeraire, buy asset exact in", tokenNumeraireKey(), false, -100, ExactInNumeraireForAsset, true},
		{"token numeraire, buy asset exact out", tokenNumeraireKey(), false, 100, ExactOutNumeraireForAsset, false},
		{"native numeraire, buy asset exact in", nativeNumeraireKey(), true, -100, ExactInNumeraireForAsset, true},
		{"native numeraire, buy asset exact out", nativeNumeraireKey(), true, 100, ExactOutNumeraireForAsset, false},
		{"native numeraire, sell asset exact in", nativeNumeraireKey(), false, -100, ExactInAssetForNumeraire, false},
		{"native numeraire, buy numeraire exact out", nativeNumeraireKey(), false, 100, ExactOutAssetForNumeraire, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := ClassifySwap(tt.key, amm.SwapParams{
				ZeroForOne:      tt.zeroForOne,
				AmountSpecified: big.NewInt(tt.amount),
			})
			require.Equal(t, tt.want, kind)
			require.Equal(t, tt.preFee, kind.FeeAtPreSettlement())
		})
	}
}

func TestNumeraireHelpers(t *testing.T) {
	token := tokenNumeraireKey()
	require.False(t, NumeraireIsCurrency0(token))
	require.Equal(t, testNumeraire, numeraireCurrency(token).Address)
	require.Equal(t, testAsset, assetCurrency(token).Address)

	native := nativeNumeraireKey()
	require.True(t, NumeraireIsCurrency0(native))
	require.True(t, numeraireCurrency(native).IsNative())
	require.Equal(t, testAsset, assetCurrency(native).Address)

	delta := amm.NewBalanceDelta(big.NewInt(7), big.NewInt(-9))
	require.Equal(t, int64(-9), numeraireAmount(token, delta).Int64())
	require.Equal(t, int64(7), numeraireAmount(native, delta).Int64())

	fee := numeraireDelta(token, big.NewInt(42))
	require.Equal(t, int64(0), fee.Amount0.Int64())
	require.Equal(t, int64(42), fee.Amount1.Int64())
}

func TestMilestoneUnlocked(t *testing.T) {
	m := &MilestonePosition{TickLower: 60, TickUpper: 120}

	require.False(t, milestoneUnlocked(true, 119, m))
	require.False(t, milestoneUnlocked(true, 120, m))
	require.True(t, milestoneUnlocked(true, 121, m))

	require.False(t, milestoneUnlocked(false, 61, m))
	require.False(t, milestoneUnlocked(false, 60, m))
	require.True(t, milestoneUnlocked(false, 59, m))
}
