// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
	log "github.com/luxfi/log"
)

// InitializerAddress is the well-known ledger identity the initializer
// acts under. All curve and milestone positions are owned by it.
const InitializerAddress = "0x0000000000000000000000000000000000009011"

// Initializer owns the per-asset pool lifecycle: it creates launch
// pools, mints their curve and milestone positions, releases milestone
// positions for the grant holder, collects fees on locked pools, and
// exits unlocked pools once price reaches the far tick.
type Initializer struct {
	pm        *amm.PoolManager
	db        database.Database
	addr      common.Address
	owner     common.Address
	converter CurveConverter
	log       log.Logger

	mu         sync.Mutex
	states     map[common.Address]*PoolState
	milestones map[common.Address][]*MilestonePosition

	grantIssued bool
	grantHook   common.Address
}

// NewInitializer creates an initializer persisting lifecycle records to
// db. The owner receives curve-mint dust and exit proceeds.
func NewInitializer(
	pm *amm.PoolManager,
	db database.Database,
	owner common.Address,
	converter CurveConverter,
	logger log.Logger,
) *Initializer {
	return &Initializer{
		pm:         pm,
		db:         db,
		addr:       common.HexToAddress(InitializerAddress),
		owner:      owner,
		converter:  converter,
		log:        logger,
		states:     make(map[common.Address]*PoolState),
		milestones: make(map[common.Address][]*MilestonePosition),
	}
}

// Address returns the initializer's ledger identity.
func (in *Initializer) Address() common.Address {
	return in.addr
}

// Owner returns the proceeds recipient.
func (in *Initializer) Owner() common.Address {
	return in.owner
}

// GrantUnlock issues the one-time capability that authorizes milestone
// withdrawals and binds hook as the milestone hook address required on
// milestone pools. Callable exactly once.
func (in *Initializer) GrantUnlock(hook common.Address) (*UnlockGrant, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.grantIssued {
		return nil, ErrGrantIssued
	}
	in.grantIssued = true
	in.grantHook = hook
	return &UnlockGrant{owner: in}, nil
}

// =========================================================================
// Pool creation
// =========================================================================

// Initialize launches a pool for params.Asset: it validates the
// configuration, creates the pool at the curve's near boundary, mints
// the reserved milestone positions and the curve positions, refunds
// truncation dust to the owner, and persists the lifecycle record. The
// resulting status is Locked when beneficiaries are configured,
// Initialized otherwise.
func (in *Initializer) Initialize(stateDB amm.StateDB, params InitParams) (*PoolState, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if _, err := in.getState(params.Asset); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, params.Asset.Hex())
	} else if !errors.Is(err, ErrAssetNotFound) {
		return nil, err
	}

	if params.Asset == (common.Address{}) {
		return nil, fmt.Errorf("%w: asset cannot be the native currency", ErrNumeraireOrdering)
	}
	if params.TotalSupply == nil || params.TotalSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive total supply", ErrInvalidCurve)
	}
	if err := validateShares(params.Beneficiaries); err != nil {
		return nil, err
	}

	assetCur := amm.Currency{Address: params.Asset}
	numCur := amm.Currency{Address: params.Numeraire}
	c0, c1 := amm.SortCurrencies(assetCur, numCur)
	if c0 == numCur && !numCur.IsNative() {
		return nil, fmt.Errorf("%w: %s", ErrNumeraireOrdering, params.Numeraire.Hex())
	}
	assetIs0 := c0 == assetCur

	key := amm.PoolKey{
		Currency0:   c0,
		Currency1:   c1,
		Fee:         params.Fee,
		TickSpacing: params.TickSpacing,
		Hooks:       params.Hook,
	}

	isMilestoneHook := in.grantIssued && params.Hook == in.grantHook
	if len(params.Milestones) > 0 && !isMilestoneHook {
		return nil, fmt.Errorf("%w: milestone pools require the unlock hook", ErrUnauthorized)
	}
	if len(params.Milestones) == 0 && isMilestoneHook {
		return nil, ErrNoMilestones
	}

	// Price starts at the curve boundary nearest the asset side, so the
	// whole curve is single-sided in asset.
	var startTick, farTick int32
	if assetIs0 {
		startTick, farTick = params.Curve.TickLower, params.Curve.TickUpper
	} else {
		startTick, farTick = params.Curve.TickUpper, params.Curve.TickLower
	}

	reserved, err := validateMilestones(params, assetIs0, startTick)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(params.TotalSupply, reserved)
	if remaining.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reserved %s of supply %s", ErrSupplyExceeded, reserved, params.TotalSupply)
	}

	buckets, err := in.converter.Convert(params.Curve, params.TickSpacing, remaining)
	if err != nil {
		return nil, err
	}

	if err := amm.Mint(stateDB, assetCur, in.addr, params.TotalSupply); err != nil {
		return nil, err
	}
	if _, err := in.pm.Initialize(stateDB, key, amm.TickToSqrtPriceX96(startTick)); err != nil {
		return nil, err
	}

	milestones := make([]*MilestonePosition, len(params.Milestones))
	for i, spec := range params.Milestones {
		liquidity := milestoneLiquidity(assetIs0, spec.TickLower, spec.TickUpper, spec.Amount)
		if liquidity.Sign() <= 0 {
			return nil, fmt.Errorf("%w: amount %s yields no liquidity", ErrInvalidMilestoneRange, spec.Amount)
		}
		salt := milestoneSalt(params.Asset, i)
		if _, _, err := in.pm.ModifyLiquidity(stateDB, in.addr, key, amm.ModifyLiquidityParams{
			TickLower:      spec.TickLower,
			TickUpper:      spec.TickUpper,
			LiquidityDelta: liquidity,
			Salt:           salt,
		}); err != nil {
			return nil, fmt.Errorf("mint milestone position %d: %w", i, err)
		}
		milestones[i] = &MilestonePosition{
			TickLower: spec.TickLower,
			TickUpper: spec.TickUpper,
			Liquidity: liquidity,
			Salt:      salt,
			Recipient: spec.Recipient,
		}
	}

	positions := make([]PositionSpec, 0, len(buckets))
	for i, b := range buckets {
		liquidity := milestoneLiquidity(assetIs0, b.TickLower, b.TickUpper, b.Amount)
		if liquidity.Sign() <= 0 {
			continue
		}
		salt := curveSalt(params.Asset, i)
		if _, _, err := in.pm.ModifyLiquidity(stateDB, in.addr, key, amm.ModifyLiquidityParams{
			TickLower:      b.TickLower,
			TickUpper:      b.TickUpper,
			LiquidityDelta: liquidity,
			Salt:           salt,
		}); err != nil {
			return nil, fmt.Errorf("mint curve position %d: %w", i, err)
		}
		positions = append(positions, PositionSpec{
			TickLower: b.TickLower,
			TickUpper: b.TickUpper,
			Liquidity: liquidity,
			Salt:      salt,
		})
	}

	// Liquidity rounding leaves a little asset behind; hand it to the
	// owner rather than strand it.
	if dust := amm.BalanceOf(stateDB, assetCur, in.addr); dust.Sign() > 0 {
		if err := amm.Transfer(stateDB, assetCur, in.addr, in.owner, dust); err != nil {
			return nil, err
		}
	}

	status := StatusInitialized
	if len(params.Beneficiaries) > 0 {
		status = StatusLocked
	}
	state := &PoolState{
		Asset:         params.Asset,
		Numeraire:     params.Numeraire,
		Beneficiaries: params.Beneficiaries,
		Positions:     positions,
		Status:        status,
		Key:           key,
		FarTick:       farTick,
	}
	if err := in.persistState(state); err != nil {
		return nil, err
	}
	if err := in.persistMilestones(params.Asset, milestones); err != nil {
		return nil, err
	}
	in.states[params.Asset] = state
	in.milestones[params.Asset] = milestones

	in.log.Info("pool launched",
		"asset", params.Asset.Hex(),
		"numeraire", params.Numeraire.Hex(),
		"pool", fmt.Sprintf("%x", key.ID()),
		"status", status.String(),
		"positions", len(positions),
		"milestones", len(milestones),
		"startTick", startTick,
		"farTick", farTick)
	return state, nil
}

// validateShares checks that every beneficiary share is in (0, WAD] and
// the list sums to exactly WAD. An empty list is valid.
func validateShares(list []BeneficiaryEntry) error {
	if len(list) == 0 {
		return nil
	}
	sum := new(big.Int)
	for _, b := range list {
		if b.Share == nil || b.Share.Sign() <= 0 || b.Share.Cmp(WAD) > 0 {
			return fmt.Errorf("%w: share for %s", ErrInvalidShares, b.Beneficiary.Hex())
		}
		sum.Add(sum, b.Share)
	}
	if sum.Cmp(WAD) != 0 {
		return fmt.Errorf("%w: sum %s", ErrInvalidShares, sum)
	}
	return nil
}

// validateMilestones checks every milestone range sits strictly beyond
// the starting price on the numeraire side and returns the total
// reserved asset amount.
func validateMilestones(params InitParams, assetIs0 bool, startTick int32) (*big.Int, error) {
	reserved := new(big.Int)
	for i, m := range params.Milestones {
		if m.TickLower >= m.TickUpper {
			return nil, fmt.Errorf("%w: position %d [%d, %d]", ErrInvalidMilestoneRange, i, m.TickLower, m.TickUpper)
		}
		if m.TickLower%params.TickSpacing != 0 || m.TickUpper%params.TickSpacing != 0 {
			return nil, fmt.Errorf("%w: position %d not aligned to spacing %d", ErrInvalidMilestoneRange, i, params.TickSpacing)
		}
		if m.Amount == nil || m.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("%w: position %d has non-positive amount", ErrInvalidMilestoneRange, i)
		}
		if assetIs0 {
			if m.TickLower <= startTick {
				return nil, fmt.Errorf("%w: position %d lower %d at or below start %d",
					ErrMilestoneRangeNotBeyondPrice, i, m.TickLower, startTick)
			}
		} else {
			if m.TickUpper >= startTick {
				return nil, fmt.Errorf("%w: position %d upper %d at or above start %d",
					ErrMilestoneRangeNotBeyondPrice, i, m.TickUpper, startTick)
			}
		}
		reserved.Add(reserved, m.Amount)
	}
	if reserved.Cmp(params.TotalSupply) > 0 {
		return nil, fmt.Errorf("%w: reserved %s of supply %s", ErrSupplyExceeded, reserved, params.TotalSupply)
	}
	return reserved, nil
}

// =========================================================================
// Milestone release
// =========================================================================

// UnlockPosition withdraws one milestone position whose threshold the
// current price has crossed, forwarding the proceeds to the position's
// recipient. Requires the unlock grant; returns the numeraire amount
// forwarded.
func (in *Initializer) UnlockPosition(grant *UnlockGrant, stateDB amm.StateDB, asset common.Address, index int) (*big.Int, error) {
	if grant == nil || grant.owner != in {
		return nil, fmt.Errorf("%w: invalid unlock grant", ErrUnauthorized)
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	state, err := in.getState(asset)
	if err != nil {
		return nil, err
	}
	milestones, err := in.getMilestones(asset)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(milestones) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPositionIndex, index, len(milestones))
	}
	m := milestones[index]
	if m.Withdrawn {
		return nil, fmt.Errorf("%w: position %d", ErrAlreadyWithdrawn, index)
	}

	tick, err := in.pm.CurrentTick(stateDB, state.Key)
	if err != nil {
		return nil, err
	}
	if !milestoneUnlocked(state.AssetIsCurrency0(), tick, m) {
		return nil, fmt.Errorf("%w: position %d at tick %d", ErrMilestoneNotUnlocked, index, tick)
	}

	received0, received1, err := in.burnPosition(stateDB, state.Key, m.TickLower, m.TickUpper, m.Liquidity, m.Salt)
	if err != nil {
		return nil, fmt.Errorf("burn milestone position %d: %w", index, err)
	}
	if err := in.forward(stateDB, state.Key, m.Recipient, received0, received1); err != nil {
		return nil, err
	}

	m.Withdrawn = true
	if err := in.persistMilestones(asset, milestones); err != nil {
		return nil, err
	}

	numeraire := received1
	if NumeraireIsCurrency0(state.Key) {
		numeraire = received0
	}
	in.log.Info("milestone position withdrawn",
		"asset", asset.Hex(),
		"index", index,
		"recipient", m.Recipient.Hex(),
		"amount0", received0,
		"amount1", received1)
	return numeraire, nil
}

// =========================================================================
// Exit and fee collection
// =========================================================================

// ExitLiquidity burns every curve position of an Initialized pool once
// price has reached the far tick, sending the proceeds to the owner and
// moving the pool to Exited. Locked pools cannot exit.
func (in *Initializer) ExitLiquidity(stateDB amm.StateDB, asset common.Address) (amm.BalanceDelta, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	zero := amm.ZeroBalanceDelta()

	state, err := in.getState(asset)
	if err != nil {
		return zero, err
	}
	if state.Status != StatusInitialized {
		return zero, fmt.Errorf("%w: %s", ErrWrongStatus, state.Status)
	}

	tick, err := in.pm.CurrentTick(stateDB, state.Key)
	if err != nil {
		return zero, err
	}
	assetIs0 := state.AssetIsCurrency0()
	if (assetIs0 && tick < state.FarTick) || (!assetIs0 && tick > state.FarTick) {
		return zero, fmt.Errorf("%w: tick %d, far tick %d", ErrFarTickNotReached, tick, state.FarTick)
	}

	total0, total1 := new(big.Int), new(big.Int)
	for i, p := range state.Positions {
		r0, r1, err := in.burnPosition(stateDB, state.Key, p.TickLower, p.TickUpper, p.Liquidity, p.Salt)
		if err != nil {
			return zero, fmt.Errorf("burn curve position %d: %w", i, err)
		}
		total0.Add(total0, r0)
		total1.Add(total1, r1)
	}
	if err := in.forward(stateDB, state.Key, in.owner, total0, total1); err != nil {
		return zero, err
	}

	state.Positions = nil
	state.Status = StatusExited
	if err := in.persistState(state); err != nil {
		return zero, err
	}

	in.log.Info("pool exited",
		"asset", asset.Hex(),
		"tick", tick,
		"amount0", total0,
		"amount1", total1)
	return amm.NewBalanceDelta(total0, total1), nil
}

// CollectFees harvests accrued base fees from every curve position of a
// Locked pool and distributes them to the beneficiaries by share.
// Truncation dust stays with the initializer.
func (in *Initializer) CollectFees(stateDB amm.StateDB, asset common.Address) (amm.BalanceDelta, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	zero := amm.ZeroBalanceDelta()

	state, err := in.getState(asset)
	if err != nil {
		return zero, err
	}
	if state.Status != StatusLocked {
		return zero, fmt.Errorf("%w: %s", ErrWrongStatus, state.Status)
	}

	total0, total1 := new(big.Int), new(big.Int)
	for i, p := range state.Positions {
		// Zero-delta poke harvests fees without touching the principal.
		_, fees, err := in.pm.ModifyLiquidity(stateDB, in.addr, state.Key, amm.ModifyLiquidityParams{
			TickLower:      p.TickLower,
			TickUpper:      p.TickUpper,
			LiquidityDelta: big.NewInt(0),
			Salt:           p.Salt,
		})
		if err != nil {
			return zero, fmt.Errorf("poke curve position %d: %w", i, err)
		}
		total0.Add(total0, receivedAmount(fees.Amount0))
		total1.Add(total1, receivedAmount(fees.Amount1))
	}

	for _, b := range state.Beneficiaries {
		cut0 := shareOf(total0, b.Share)
		cut1 := shareOf(total1, b.Share)
		if err := in.forward(stateDB, state.Key, b.Beneficiary, cut0, cut1); err != nil {
			return zero, err
		}
	}

	in.log.Info("fees collected",
		"asset", asset.Hex(),
		"amount0", total0,
		"amount1", total1,
		"beneficiaries", len(state.Beneficiaries))
	return amm.NewBalanceDelta(total0, total1), nil
}

// burnPosition removes liquidity and reports the amounts received,
// fees included.
func (in *Initializer) burnPosition(
	stateDB amm.StateDB,
	key amm.PoolKey,
	tickLower, tickUpper int32,
	liquidity *big.Int,
	salt [32]byte,
) (*big.Int, *big.Int, error) {
	principal, fees, err := in.pm.ModifyLiquidity(stateDB, in.addr, key, amm.ModifyLiquidityParams{
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: new(big.Int).Neg(liquidity),
		Salt:           salt,
	})
	if err != nil {
		return nil, nil, err
	}
	total := principal.Add(fees)
	return receivedAmount(total.Amount0), receivedAmount(total.Amount1), nil
}

// forward transfers non-zero amounts of both pool currencies from the
// initializer to a recipient.
func (in *Initializer) forward(stateDB amm.StateDB, key amm.PoolKey, to common.Address, amount0, amount1 *big.Int) error {
	if amount0.Sign() > 0 {
		if err := amm.Transfer(stateDB, key.Currency0, in.addr, to, amount0); err != nil {
			return err
		}
	}
	if amount1.Sign() > 0 {
		if err := amm.Transfer(stateDB, key.Currency1, in.addr, to, amount1); err != nil {
			return err
		}
	}
	return nil
}

// receivedAmount converts a settled delta leg into the amount received,
// zero when the leg was owed instead.
func receivedAmount(delta *big.Int) *big.Int {
	if delta.Sign() < 0 {
		return new(big.Int).Neg(delta)
	}
	return new(big.Int)
}

// shareOf applies a WAD share fraction with floor division.
func shareOf(amount, share *big.Int) *big.Int {
	cut := new(big.Int).Mul(amount, share)
	return cut.Div(cut, WAD)
}

// =========================================================================
// Accessors
// =========================================================================

// State returns an asset's lifecycle record. Callers must not mutate
// the result.
func (in *Initializer) State(asset common.Address) (*PoolState, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.getState(asset)
}

// Beneficiaries returns an asset's fee beneficiary list.
func (in *Initializer) Beneficiaries(asset common.Address) ([]BeneficiaryEntry, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	state, err := in.getState(asset)
	if err != nil {
		return nil, err
	}
	return state.Beneficiaries, nil
}

// Positions returns an asset's curve positions, empty after exit.
func (in *Initializer) Positions(asset common.Address) ([]PositionSpec, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	state, err := in.getState(asset)
	if err != nil {
		return nil, err
	}
	return state.Positions, nil
}

// MilestonePositionDetails returns a copy of one milestone position.
func (in *Initializer) MilestonePositionDetails(asset common.Address, index int) (MilestonePosition, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	milestones, err := in.getMilestones(asset)
	if err != nil {
		return MilestonePosition{}, err
	}
	if index < 0 || index >= len(milestones) {
		return MilestonePosition{}, fmt.Errorf("%w: %d of %d", ErrPositionIndex, index, len(milestones))
	}
	return *milestones[index], nil
}

// ActiveMilestonePositions returns the indices of milestone positions
// not yet withdrawn.
func (in *Initializer) ActiveMilestonePositions(asset common.Address) ([]int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	milestones, err := in.getMilestones(asset)
	if err != nil {
		return nil, err
	}
	active := make([]int, 0, len(milestones))
	for i, m := range milestones {
		if !m.Withdrawn {
			active = append(active, i)
		}
	}
	return active, nil
}

// NumActiveMilestonePositions counts milestone positions not yet
// withdrawn.
func (in *Initializer) NumActiveMilestonePositions(asset common.Address) (int, error) {
	active, err := in.ActiveMilestonePositions(asset)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// AssetForPool resolves a pool ID back to its launched asset.
func (in *Initializer) AssetForPool(poolID [32]byte) (common.Address, error) {
	return in.loadAssetForPool(poolID)
}

// milestoneList exposes the live milestone slice to the milestone hook.
func (in *Initializer) milestoneList(asset common.Address) ([]*MilestonePosition, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.getMilestones(asset)
}

// getState loads an asset's record through the cache. Caller holds mu.
func (in *Initializer) getState(asset common.Address) (*PoolState, error) {
	if state, ok := in.states[asset]; ok {
		return state, nil
	}
	state, err := in.loadState(asset)
	if err != nil {
		return nil, err
	}
	in.states[asset] = state
	return state, nil
}

// getMilestones loads an asset's milestone list through the cache.
// Caller holds mu.
func (in *Initializer) getMilestones(asset common.Address) ([]*MilestonePosition, error) {
	if list, ok := in.milestones[asset]; ok {
		return list, nil
	}
	list, err := in.loadMilestones(asset)
	if err != nil {
		return nil, err
	}
	in.milestones[asset] = list
	return list, nil
}
