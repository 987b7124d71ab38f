// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
	log "github.com/luxfi/log"
)

// FeeHookConfig carries the deployment-time fee fraction, WAD
// fixed-point in [0, WAD].
type FeeHookConfig struct {
	Fee *big.Int
}

// FeeHook levies a protocol fee on the numeraire leg of every swap and
// distributes it pro-rata to the asset's beneficiaries. It fully
// replaces the pool's base fee: pools carrying a non-zero base fee tier
// are rejected at initialization. Fee collection is fail-open — a swap
// is never blocked because the fee could not be taken.
type FeeHook struct {
	pm   *amm.PoolManager
	init *Initializer
	addr common.Address
	fee  *big.Int
	log  log.Logger
}

var _ amm.Hooks = (*FeeHook)(nil)

// feeHookPermissions are the capability bits encoded into a fee hook's
// address.
var feeHookPermissions = amm.HookPermissions{
	BeforeInitialize:      true,
	BeforeModifyLiquidity: true,
	AfterModifyLiquidity:  true,
	BeforeSwap:            true,
	AfterSwap:             true,
}

// NewFeeHook creates a fee hook bound to a pool manager and an
// initializer, derives its capability-encoded address from the deployer
// and salt, and registers it with the pool manager.
func NewFeeHook(
	pm *amm.PoolManager,
	init *Initializer,
	deployer common.Address,
	salt [32]byte,
	cfg FeeHookConfig,
	logger log.Logger,
) (*FeeHook, error) {
	addr := amm.GenerateHookAddress(deployer, salt, feeHookPermissions)
	h, err := newFeeHook(pm, init, addr, cfg.Fee, logger)
	if err != nil {
		return nil, err
	}
	if err := pm.Hooks().Register(h.addr, h); err != nil {
		return nil, err
	}
	return h, nil
}

// newFeeHook builds the fee logic bound to an already-derived hook
// address without registering it. Shared with the milestone variant,
// which registers itself under the same address.
func newFeeHook(pm *amm.PoolManager, init *Initializer, addr common.Address, fee *big.Int, logger log.Logger) (*FeeHook, error) {
	if fee == nil || fee.Sign() < 0 || fee.Cmp(WAD) > 0 {
		return nil, ErrInvalidFeeFraction
	}
	return &FeeHook{
		pm:   pm,
		init: init,
		addr: addr,
		fee:  new(big.Int).Set(fee),
		log:  logger,
	}, nil
}

// Address returns the hook's capability-encoded identity, used as the
// Hooks field of pool keys and as the fee custody address.
func (h *FeeHook) Address() common.Address {
	return h.addr
}

// BeforeInitialize gates pool creation: the fee mechanism replaces the
// base AMM fee, it never stacks with one.
func (h *FeeHook) BeforeInitialize(stateDB amm.StateDB, key amm.PoolKey, sqrtPriceX96 *big.Int) error {
	if key.Fee != 0 {
		return ErrNonZeroBaseFee
	}
	return nil
}

func (h *FeeHook) AfterInitialize(stateDB amm.StateDB, key amm.PoolKey, sqrtPriceX96 *big.Int, tick int32) error {
	h.log.Info("pool initialized", "pool", fmt.Sprintf("%x", key.ID()), "tick", tick)
	return nil
}

// BeforeSwap extracts the fee for swaps whose numeraire amount is known
// a priori: exact-input swaps paying numeraire and exact-output swaps
// receiving a fixed numeraire amount.
func (h *FeeHook) BeforeSwap(stateDB amm.StateDB, sender common.Address, key amm.PoolKey, params amm.SwapParams) (amm.BalanceDelta, error) {
	kind := ClassifySwap(key, params)
	if !kind.FeeAtPreSettlement() {
		return amm.ZeroBalanceDelta(), nil
	}
	basis := new(big.Int).Abs(params.AmountSpecified)
	return h.collect(stateDB, key, kind, basis)
}

// AfterSwap extracts the fee for swaps whose numeraire amount is only
// known from the realized settlement delta.
func (h *FeeHook) AfterSwap(stateDB amm.StateDB, sender common.Address, key amm.PoolKey, params amm.SwapParams, delta amm.BalanceDelta) (amm.BalanceDelta, error) {
	kind := ClassifySwap(key, params)
	if kind.FeeAtPreSettlement() {
		return amm.ZeroBalanceDelta(), nil
	}

	// Orient the numeraire leg of the realized delta: received by the
	// swapper when selling asset, paid by the swapper when buying with
	// an exact asset amount out.
	realized := numeraireAmount(key, delta)
	basis := new(big.Int)
	if kind == ExactInAssetForNumeraire {
		basis.Neg(realized)
	} else {
		basis.Set(realized)
	}
	// Realized amount can be zero or flipped in sign; skip rather than
	// mischarge.
	if basis.Sign() <= 0 {
		return amm.ZeroBalanceDelta(), nil
	}
	return h.collect(stateDB, key, kind, basis)
}

// collect runs the fee algorithm on a numeraire basis amount. All skip
// paths return a zero delta and no error: a fee shortfall must never
// abort the enclosing swap.
func (h *FeeHook) collect(stateDB amm.StateDB, key amm.PoolKey, kind SwapKind, basis *big.Int) (amm.BalanceDelta, error) {
	zero := amm.ZeroBalanceDelta()

	asset := assetCurrency(key)
	beneficiaries, err := h.init.Beneficiaries(asset.Address)
	if err != nil || len(beneficiaries) == 0 {
		return zero, nil
	}

	feeAmount := new(big.Int).Mul(basis, h.fee)
	feeAmount.Div(feeAmount, WAD)
	if feeAmount.Sign() <= 0 {
		return zero, nil
	}

	numeraire := numeraireCurrency(key)
	available := amm.BalanceOf(stateDB, numeraire, h.pm.Address())
	if available.Cmp(feeAmount) < 0 {
		h.log.Warn("fee skipped, insufficient numeraire float",
			"pool", fmt.Sprintf("%x", key.ID()), "fee", feeAmount, "available", available)
		return zero, nil
	}

	if err := h.pm.Take(stateDB, numeraire, h.addr, feeAmount); err != nil {
		return zero, err
	}

	distributed := big.NewInt(0)
	for _, b := range beneficiaries {
		cut := new(big.Int).Mul(feeAmount, b.Share)
		cut.Div(cut, WAD)
		if cut.Sign() <= 0 {
			continue
		}
		if err := amm.Transfer(stateDB, numeraire, h.addr, b.Beneficiary, cut); err != nil {
			return zero, err
		}
		distributed.Add(distributed, cut)
	}
	// Truncation remainder stays in hook custody as protocol dust.

	h.log.Info("swap fee collected",
		"pool", fmt.Sprintf("%x", key.ID()),
		"kind", kind.String(),
		"basis", basis,
		"fee", feeAmount,
		"distributed", distributed)

	return numeraireDelta(key, feeAmount), nil
}

// BeforeModifyLiquidity restricts direct liquidity changes on fee-hook
// pools to the bound initializer.
func (h *FeeHook) BeforeModifyLiquidity(stateDB amm.StateDB, sender common.Address, key amm.PoolKey, params amm.ModifyLiquidityParams) error {
	if sender != h.init.Address() {
		return fmt.Errorf("%w: liquidity on fee-hook pools is initializer-only", ErrUnauthorized)
	}
	return nil
}

func (h *FeeHook) AfterModifyLiquidity(stateDB amm.StateDB, sender common.Address, key amm.PoolKey, params amm.ModifyLiquidityParams, delta amm.BalanceDelta) error {
	h.log.Info("liquidity modified",
		"pool", fmt.Sprintf("%x", key.ID()),
		"tickLower", params.TickLower,
		"tickUpper", params.TickUpper,
		"liquidityDelta", params.LiquidityDelta)
	return nil
}
