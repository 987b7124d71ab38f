// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"math/big"

	"github.com/luxfi/launch/amm"
)

// SwapKind classifies a swap by direction and exactness relative to the
// pool's numeraire. The classification is resolved once per swap and
// decides which callback levies the fee: when the numeraire amount is
// known a priori the fee is taken pre-settlement, otherwise it is taken
// post-settlement from the realized delta.
type SwapKind uint8

const (
	// ExactInAssetForNumeraire sells a fixed asset amount for numeraire.
	ExactInAssetForNumeraire SwapKind = iota
	// ExactOutAssetForNumeraire pays asset for a fixed numeraire amount.
	ExactOutAssetForNumeraire
	// ExactInNumeraireForAsset pays a fixed numeraire amount for asset.
	ExactInNumeraireForAsset
	// ExactOutNumeraireForAsset pays numeraire for a fixed asset amount.
	ExactOutNumeraireForAsset
)

func (k SwapKind) String() string {
	switch k {
	case ExactInAssetForNumeraire:
		return "exactInAssetForNumeraire"
	case ExactOutAssetForNumeraire:
		return "exactOutAssetForNumeraire"
	case ExactInNumeraireForAsset:
		return "exactInNumeraireForAsset"
	case ExactOutNumeraireForAsset:
		return "exactOutNumeraireForAsset"
	default:
		return "unknown"
	}
}

// FeeAtPreSettlement reports whether the numeraire leg of the swap is
// known before settlement, so the fee can be taken in the pre-swap
// callback. The complementary kinds are charged post-settlement.
func (k SwapKind) FeeAtPreSettlement() bool {
	return k == ExactInNumeraireForAsset || k == ExactOutAssetForNumeraire
}

// NumeraireIsCurrency0 reports which canonical slot the numeraire
// occupies in a pool key: slot 1 by convention, except the native
// currency whose zero address always sorts to slot 0.
func NumeraireIsCurrency0(key amm.PoolKey) bool {
	return key.Currency0.IsNative()
}

// ClassifySwap resolves the swap kind for a pool and swap request. Pure;
// both fee callbacks dispatch on its result so the case analysis cannot
// drift between call sites.
func ClassifySwap(key amm.PoolKey, params amm.SwapParams) SwapKind {
	numeraire0 := NumeraireIsCurrency0(key)
	// The input currency is currency0 exactly when swapping zero for one.
	inputIsNumeraire := params.ZeroForOne == numeraire0

	if params.ExactInput() {
		if inputIsNumeraire {
			return ExactInNumeraireForAsset
		}
		return ExactInAssetForNumeraire
	}
	if inputIsNumeraire {
		return ExactOutNumeraireForAsset
	}
	return ExactOutAssetForNumeraire
}

// numeraireCurrency returns the pool's numeraire currency.
func numeraireCurrency(key amm.PoolKey) amm.Currency {
	if NumeraireIsCurrency0(key) {
		return key.Currency0
	}
	return key.Currency1
}

// assetCurrency returns the pool's asset currency.
func assetCurrency(key amm.PoolKey) amm.Currency {
	if NumeraireIsCurrency0(key) {
		return key.Currency1
	}
	return key.Currency0
}

// numeraireAmount extracts the numeraire side of a balance delta.
func numeraireAmount(key amm.PoolKey, delta amm.BalanceDelta) *big.Int {
	if NumeraireIsCurrency0(key) {
		return delta.Amount0
	}
	return delta.Amount1
}

// numeraireDelta builds a balance delta carrying an amount on the
// numeraire side only.
func numeraireDelta(key amm.PoolKey, amount *big.Int) amm.BalanceDelta {
	if NumeraireIsCurrency0(key) {
		return amm.NewBalanceDelta(amount, big.NewInt(0))
	}
	return amm.NewBalanceDelta(big.NewInt(0), amount)
}
