// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"
)

// UnlockGrant is the capability that authorizes milestone withdrawals.
// The initializer issues exactly one per process, to the milestone hook
// that will drive unlocks; possession of the grant is the authorization,
// there is no address check on the unlock path.
type UnlockGrant struct {
	owner *Initializer
}

// MilestoneHook extends the fee hook with milestone-driven liquidity
// release: after every swap it scans the asset's reserved positions and
// withdraws any whose threshold the new price has crossed. The scan is
// fail-open like fee collection, an unlock failure never aborts the
// swap that triggered it.
type MilestoneHook struct {
	*FeeHook
	grant *UnlockGrant
}

var _ amm.Hooks = (*MilestoneHook)(nil)

var milestoneHookPermissions = amm.HookPermissions{
	BeforeInitialize:      true,
	AfterInitialize:       true,
	BeforeModifyLiquidity: true,
	AfterModifyLiquidity:  true,
	BeforeSwap:            true,
	AfterSwap:             true,
}

// NewMilestoneHook creates the milestone variant, derives its
// capability-encoded address, obtains the one-time unlock grant from the
// initializer, and registers with the pool manager.
func NewMilestoneHook(
	pm *amm.PoolManager,
	init *Initializer,
	deployer common.Address,
	salt [32]byte,
	cfg FeeHookConfig,
	logger log.Logger,
) (*MilestoneHook, error) {
	addr := amm.GenerateHookAddress(deployer, salt, milestoneHookPermissions)
	fees, err := newFeeHook(pm, init, addr, cfg.Fee, logger)
	if err != nil {
		return nil, err
	}
	grant, err := init.GrantUnlock(addr)
	if err != nil {
		return nil, err
	}
	h := &MilestoneHook{FeeHook: fees, grant: grant}
	if err := pm.Hooks().Register(addr, h); err != nil {
		return nil, err
	}
	return h, nil
}

// AfterSwap levies the post-settlement fee, then releases every reserved
// position the swap's price movement unlocked.
func (h *MilestoneHook) AfterSwap(stateDB amm.StateDB, sender common.Address, key amm.PoolKey, params amm.SwapParams, delta amm.BalanceDelta) (amm.BalanceDelta, error) {
	feeDelta, err := h.FeeHook.AfterSwap(stateDB, sender, key, params, delta)
	if err != nil {
		return feeDelta, err
	}
	h.releaseUnlocked(stateDB, key)
	return feeDelta, nil
}

// releaseUnlocked withdraws every active milestone position whose
// threshold the current tick has crossed. Errors are logged and
// swallowed; a position that fails to release stays active and is
// retried on the next swap.
func (h *MilestoneHook) releaseUnlocked(stateDB amm.StateDB, key amm.PoolKey) {
	asset := assetCurrency(key).Address
	state, err := h.init.State(asset)
	if err != nil {
		return
	}
	milestones, err := h.init.milestoneList(asset)
	if err != nil || len(milestones) == 0 {
		return
	}
	tick, err := h.pm.CurrentTick(stateDB, key)
	if err != nil {
		return
	}

	assetIs0 := state.AssetIsCurrency0()
	for i, m := range milestones {
		if m.Withdrawn || !milestoneUnlocked(assetIs0, tick, m) {
			continue
		}
		amount, err := h.init.UnlockPosition(h.grant, stateDB, asset, i)
		if err != nil {
			h.log.Warn("milestone release failed",
				"asset", asset.Hex(), "index", i, "err", err)
			continue
		}
		h.log.Info("milestone released",
			"asset", asset.Hex(),
			"index", i,
			"recipient", m.Recipient.Hex(),
			"numeraire", amount,
			"tick", tick)
	}
}

// milestoneUnlocked reports whether the current tick has crossed a
// position's far boundary: above the range when the asset is currency0,
// below it otherwise.
func milestoneUnlocked(assetIs0 bool, tick int32, m *MilestonePosition) bool {
	if assetIs0 {
		return tick > m.TickUpper
	}
	return tick < m.TickLower
}

// milestoneLiquidity converts a reserved asset amount into the position
// liquidity for its tick range.
func milestoneLiquidity(assetIs0 bool, tickLower, tickUpper int32, amount *big.Int) *big.Int {
	sqrtLower := amm.TickToSqrtPriceX96(tickLower)
	sqrtUpper := amm.TickToSqrtPriceX96(tickUpper)
	if assetIs0 {
		return amm.LiquidityForAmount0(sqrtLower, sqrtUpper, amount)
	}
	return amm.LiquidityForAmount1(sqrtLower, sqrtUpper, amount)
}

// milestoneSalt derives the position salt for an asset's i-th reserved
// range.
func milestoneSalt(asset common.Address, index int) [32]byte {
	return deriveSalt("milestone", asset, index)
}

func curveSalt(asset common.Address, index int) [32]byte {
	return deriveSalt("curve", asset, index)
}

func deriveSalt(kind string, asset common.Address, index int) [32]byte {
	h := blake3.New()
	h.Write([]byte(kind))
	h.Write(asset.Bytes())
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	h.Write(idx[:])
	var salt [32]byte
	h.Digest().Read(salt[:])
	return salt
}
