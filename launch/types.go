// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package launch implements the fee-extraction and milestone-based
// liquidity-unlock logic attached to launch pools: a fee hook that
// levies a protocol fee on the numeraire leg of every swap and splits
// it among a fixed beneficiary set, an initializer owning the per-asset
// pool lifecycle, and a milestone hook that releases reserved liquidity
// positions once the traded price crosses configured thresholds.
package launch

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
)

// WAD is the fixed-point unit for fee and share fractions (1.0 = 1e18).
var WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// BeneficiaryEntry entitles a recipient to a fixed fractional share of
// collected fees. Share is WAD fixed-point in (0, WAD]; a pool's list is
// fixed at lock time and validated to sum to exactly WAD.
type BeneficiaryEntry struct {
	Beneficiary common.Address
	Share       *big.Int
}

// PoolStatus is the lifecycle state of a launch pool.
type PoolStatus uint8

const (
	StatusUninitialized PoolStatus = iota
	StatusInitialized              // no beneficiaries; may exit at farTick
	StatusLocked                   // beneficiaries present; fees collectible, no exit
	StatusExited                   // terminal
)

func (s PoolStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitialized:
		return "initialized"
	case StatusLocked:
		return "locked"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// PositionSpec records a liquidity position owned by the initializer on
// behalf of an asset's pool.
type PositionSpec struct {
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
	Salt      [32]byte
}

// PoolState is the per-asset lifecycle record. Created at initialization,
// mutated by collection and exit, never deleted.
type PoolState struct {
	Asset         common.Address
	Numeraire     common.Address
	Beneficiaries []BeneficiaryEntry
	Positions     []PositionSpec // curve positions, excludes milestone positions
	Status        PoolStatus
	Key           amm.PoolKey
	FarTick       int32 // price boundary required before exit
}

// AssetIsCurrency0 reports which canonical slot the asset occupies. The
// numeraire sorts to slot 1 except when native (the zero address), which
// always sorts to slot 0.
func (ps *PoolState) AssetIsCurrency0() bool {
	return ps.Key.Currency0.Address == ps.Asset
}

// MilestoneSpec configures one reserved milestone position at
// initialization time.
type MilestoneSpec struct {
	TickLower int32
	TickUpper int32
	Amount    *big.Int // asset quantity reserved for the range
	Recipient common.Address
}

// MilestonePosition is a reserved liquidity range that stays locked
// until price crosses its far boundary. Only the Withdrawn flag ever
// mutates, and only from false to true.
type MilestonePosition struct {
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
	Salt      [32]byte
	Recipient common.Address
	Withdrawn bool
}

// CurveParams bounds the liquidity distribution curve.
type CurveParams struct {
	TickLower    int32
	TickUpper    int32
	NumPositions int
}

// InitParams configures pool creation for one asset.
type InitParams struct {
	Asset         common.Address
	Numeraire     common.Address // zero address = native
	TotalSupply   *big.Int       // asset quantity supplied for liquidity
	Fee           uint32         // base fee tier; must be zero on fee-hook pools
	TickSpacing   int32
	Hook          common.Address
	Curve         CurveParams
	Beneficiaries []BeneficiaryEntry
	Milestones    []MilestoneSpec // required non-empty on milestone pools
}

// Errors
var (
	ErrUnauthorized                 = errors.New("unauthorized")
	ErrNonZeroBaseFee               = errors.New("base fee tier must be zero")
	ErrAlreadyInitialized           = errors.New("asset already initialized")
	ErrAssetNotFound                = errors.New("asset not found")
	ErrPoolNotFound                 = errors.New("pool not found")
	ErrNoMilestones                 = errors.New("milestone position list is empty")
	ErrInvalidMilestoneRange        = errors.New("invalid milestone tick range")
	ErrMilestoneRangeNotBeyondPrice = errors.New("milestone range not beyond current price")
	ErrAlreadyWithdrawn             = errors.New("milestone position already withdrawn")
	ErrMilestoneNotUnlocked         = errors.New("milestone threshold not crossed")
	ErrWrongStatus                  = errors.New("operation not allowed in current status")
	ErrFarTickNotReached            = errors.New("price has not reached the far tick")
	ErrInvalidShares                = errors.New("beneficiary shares must each be in (0, 1] and sum to 1")
	ErrInvalidFeeFraction           = errors.New("fee fraction must be in [0, 1]")
	ErrPositionIndex                = errors.New("milestone position index out of range")
	ErrNumeraireOrdering            = errors.New("numeraire must sort after asset")
	ErrSupplyExceeded               = errors.New("reserved milestone amounts exceed total supply")
	ErrInvalidCurve                 = errors.New("invalid curve parameters")
	ErrGrantIssued                  = errors.New("unlock grant already issued")
)
