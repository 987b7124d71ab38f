// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// PoolManager is the singleton pool manager. All pools live in this one
// component. Every swap, liquidity modification and lifecycle operation
// is applied as a single serialized atomic transition: transfers settle
// immediately within the call, so there is no deferred delta netting and
// no locking discipline.
type PoolManager struct {
	// pools stores all pool states by pool ID
	pools map[[32]byte]*Pool

	// positions stores all liquidity positions
	// Key: BLAKE3(owner || tickLower || tickUpper || salt)
	positions map[[32]byte]*Position

	// hooks binds hook addresses in pool keys to implementations
	hooks *HookRegistry
}

// NewPoolManager creates a new pool manager instance.
func NewPoolManager(hooks *HookRegistry) *PoolManager {
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	return &PoolManager{
		pools:     make(map[[32]byte]*Pool),
		positions: make(map[[32]byte]*Position),
		hooks:     hooks,
	}
}

// Address returns the pool manager's custody address.
func (pm *PoolManager) Address() common.Address {
	return poolManagerAddr
}

// Hooks returns the hook registry for binding hook implementations.
func (pm *PoolManager) Hooks() *HookRegistry {
	return pm.hooks
}

// hookFor resolves the implementation to dispatch for a capability, or
// nil when the pool has no hook set or the address lacks the bit.
func (pm *PoolManager) hookFor(key PoolKey, flag HookFlags) Hooks {
	if key.Hooks == (common.Address{}) || !HasPermission(key.Hooks, flag) {
		return nil
	}
	return pm.hooks.Lookup(key.Hooks)
}

// =========================================================================
// Pool Initialization
// =========================================================================

// Initialize creates and initializes a new pool, returning the tick
// corresponding to the starting price.
func (pm *PoolManager) Initialize(
	stateDB StateDB,
	key PoolKey,
	sqrtPriceX96 *big.Int,
) (int24, error) {
	if c0, c1 := SortCurrencies(key.Currency0, key.Currency1); c0 != key.Currency0 || c1 != key.Currency1 ||
		key.Currency0 == key.Currency1 {
		return 0, ErrCurrencyNotSorted
	}
	if key.Fee > FeeMax {
		return 0, ErrInvalidFee
	}
	if sqrtPriceX96 == nil || sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) > 0 {
		return 0, ErrInvalidSqrtPrice
	}
	if key.Hooks != (common.Address{}) && pm.hooks.Lookup(key.Hooks) == nil {
		return 0, ErrHookNotRegistered
	}

	poolId := key.ID()
	pool := pm.getPool(stateDB, poolId)
	if pool.IsInitialized() {
		return 0, ErrPoolAlreadyInitialized
	}

	tick := SqrtPriceX96ToTick(sqrtPriceX96)

	if h := pm.hookFor(key, HookBeforeInitialize); h != nil {
		if err := h.BeforeInitialize(stateDB, key, sqrtPriceX96); err != nil {
			return 0, err
		}
	}

	pool.SqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	pool.Tick = tick
	pool.Liquidity = big.NewInt(0)
	pool.FeeGrowth0X128 = big.NewInt(0)
	pool.FeeGrowth1X128 = big.NewInt(0)
	pm.setPool(stateDB, poolId, pool)

	if h := pm.hookFor(key, HookAfterInitialize); h != nil {
		if err := h.AfterInitialize(stateDB, key, sqrtPriceX96, tick); err != nil {
			return 0, err
		}
	}

	return tick, nil
}

// =========================================================================
// Swaps
// =========================================================================

// Swap executes a swap in a pool. The returned delta is the fully
// settled result, including any fee deltas contributed by the pool's
// hook set (positive = paid by the swapper, negative = received).
func (pm *PoolManager) Swap(
	stateDB StateDB,
	sender common.Address,
	key PoolKey,
	params SwapParams,
) (BalanceDelta, error) {
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return ZeroBalanceDelta(), ErrInvalidAmount
	}

	poolId := key.ID()
	pool := pm.getPool(stateDB, poolId)
	if !pool.IsInitialized() {
		return ZeroBalanceDelta(), ErrPoolNotInitialized
	}

	hookDelta := ZeroBalanceDelta()
	if h := pm.hookFor(key, HookBeforeSwap); h != nil {
		feeDelta, err := h.BeforeSwap(stateDB, sender, key, params)
		if err != nil {
			return ZeroBalanceDelta(), err
		}
		hookDelta = hookDelta.Add(feeDelta)
	}

	delta, err := pm.executeSwap(pool, key, params)
	if err != nil {
		return ZeroBalanceDelta(), err
	}
	pm.setPool(stateDB, poolId, pool)

	if h := pm.hookFor(key, HookAfterSwap); h != nil {
		feeDelta, err := h.AfterSwap(stateDB, sender, key, params, delta)
		if err != nil {
			return ZeroBalanceDelta(), err
		}
		hookDelta = hookDelta.Add(feeDelta)
	}

	total := delta.Add(hookDelta)
	if err := pm.settle(stateDB, sender, key, total); err != nil {
		return ZeroBalanceDelta(), err
	}
	return total, nil
}

// executeSwap performs the swap math and moves the pool price.
func (pm *PoolManager) executeSwap(pool *Pool, key PoolKey, params SwapParams) (BalanceDelta, error) {
	exactInput := params.AmountSpecified.Sign() < 0

	var amountIn, amountOut *big.Int
	if exactInput {
		amountIn = new(big.Int).Neg(params.AmountSpecified)
		feeLP := pm.baseFee(amountIn, key.Fee)
		effIn := new(big.Int).Sub(amountIn, feeLP)
		amountOut = swapOutput(pool.Liquidity, effIn)
		pm.accrueBaseFee(pool, params.ZeroForOne, feeLP)
	} else {
		if pool.Liquidity.Sign() == 0 {
			return ZeroBalanceDelta(), ErrInsufficientLiquidity
		}
		amountOut = new(big.Int).Set(params.AmountSpecified)
		amountIn = swapInput(pool.Liquidity, amountOut)
		feeLP := pm.baseFee(amountIn, key.Fee)
		amountIn.Add(amountIn, feeLP)
		pm.accrueBaseFee(pool, params.ZeroForOne, feeLP)
	}

	// Price follows the pool's net currency1 change:
	// sqrtP' = sqrtP + dy * 2^96 / L
	if pool.Liquidity.Sign() > 0 {
		dy := new(big.Int)
		if params.ZeroForOne {
			dy.Neg(amountOut) // pool pays out currency1
		} else {
			dy.Set(amountIn) // pool receives currency1
		}
		move := dy.Mul(dy, Q96)
		move.Div(move, pool.Liquidity)
		newSqrt := new(big.Int).Add(pool.SqrtPriceX96, move)
		newSqrt = clampSqrtPrice(newSqrt, params)
		pool.SqrtPriceX96 = newSqrt
		pool.Tick = SqrtPriceX96ToTick(newSqrt)
	}

	if params.ZeroForOne {
		return NewBalanceDelta(amountIn, new(big.Int).Neg(amountOut)), nil
	}
	return NewBalanceDelta(new(big.Int).Neg(amountOut), amountIn), nil
}

// swapOutput computes the output for a given input amount.
func swapOutput(liquidity, amountIn *big.Int) *big.Int {
	if liquidity.Sign() == 0 || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amountIn, liquidity)
	den := new(big.Int).Add(liquidity, amountIn)
	return num.Div(num, den)
}

// swapInput computes the input required for a given output amount,
// clamping at the pool's liquidity.
func swapInput(liquidity, amountOut *big.Int) *big.Int {
	if liquidity.Sign() == 0 || amountOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	den := new(big.Int).Sub(liquidity, amountOut)
	if den.Sign() <= 0 {
		return new(big.Int).Set(liquidity)
	}
	num := new(big.Int).Mul(amountOut, liquidity)
	return num.Div(num, den)
}

// baseFee computes the pool's base fee on an amount.
func (pm *PoolManager) baseFee(amount *big.Int, fee uint24) *big.Int {
	if fee == 0 || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	feeAmount := new(big.Int).Mul(amount, big.NewInt(int64(fee)))
	return feeAmount.Div(feeAmount, big.NewInt(1_000_000))
}

// accrueBaseFee credits a base-fee amount taken on the input currency to
// the pool's fee growth. With no active liquidity the fee stays in pool
// manager custody.
func (pm *PoolManager) accrueBaseFee(pool *Pool, zeroForOne bool, feeLP *big.Int) {
	if feeLP.Sign() <= 0 || pool.Liquidity.Sign() <= 0 {
		return
	}
	growth := new(big.Int).Mul(feeLP, Q128)
	growth.Div(growth, pool.Liquidity)
	if zeroForOne {
		pool.FeeGrowth0X128 = new(big.Int).Add(pool.FeeGrowth0X128, growth)
	} else {
		pool.FeeGrowth1X128 = new(big.Int).Add(pool.FeeGrowth1X128, growth)
	}
}

func clampSqrtPrice(sqrt *big.Int, params SwapParams) *big.Int {
	if params.SqrtPriceLimitX96 != nil && params.SqrtPriceLimitX96.Sign() > 0 {
		if params.ZeroForOne && sqrt.Cmp(params.SqrtPriceLimitX96) < 0 {
			sqrt = new(big.Int).Set(params.SqrtPriceLimitX96)
		}
		if !params.ZeroForOne && sqrt.Cmp(params.SqrtPriceLimitX96) > 0 {
			sqrt = new(big.Int).Set(params.SqrtPriceLimitX96)
		}
	}
	if sqrt.Cmp(MinSqrtRatio) < 0 {
		return new(big.Int).Set(MinSqrtRatio)
	}
	if sqrt.Cmp(MaxSqrtRatio) > 0 {
		return new(big.Int).Set(MaxSqrtRatio)
	}
	return sqrt
}

// =========================================================================
// Liquidity
// =========================================================================

// ModifyLiquidity adds or removes liquidity from a pool. A zero
// liquidity delta harvests accrued base fees without changing the
// position. Returns the settled principal delta and the fees accrued.
func (pm *PoolManager) ModifyLiquidity(
	stateDB StateDB,
	sender common.Address,
	key PoolKey,
	params ModifyLiquidityParams,
) (BalanceDelta, BalanceDelta, error) {
	zero := ZeroBalanceDelta()
	if params.TickLower >= params.TickUpper {
		return zero, zero, ErrInvalidTickRange
	}
	if params.TickLower < MinTick || params.TickUpper > MaxTick {
		return zero, zero, ErrTickOutOfRange
	}
	if params.LiquidityDelta == nil {
		return zero, zero, ErrInvalidAmount
	}

	poolId := key.ID()
	pool := pm.getPool(stateDB, poolId)
	if !pool.IsInitialized() {
		return zero, zero, ErrPoolNotInitialized
	}

	if h := pm.hookFor(key, HookBeforeModifyLiquidity); h != nil {
		if err := h.BeforeModifyLiquidity(stateDB, sender, key, params); err != nil {
			return zero, zero, err
		}
	}

	posKey := PositionKey(sender, params.TickLower, params.TickUpper, params.Salt)
	pos := pm.getPosition(stateDB, posKey)
	pos.Owner = sender
	pos.TickLower = params.TickLower
	pos.TickUpper = params.TickUpper

	// Harvest base fees accrued since the position was last touched.
	feesAccrued := zero
	if pos.Liquidity.Sign() > 0 {
		fees0 := growthOwed(pos.Liquidity, pool.FeeGrowth0X128, pos.FeeGrowth0LastX128)
		fees1 := growthOwed(pos.Liquidity, pool.FeeGrowth1X128, pos.FeeGrowth1LastX128)
		feesAccrued = NewBalanceDelta(new(big.Int).Neg(fees0), new(big.Int).Neg(fees1))
	}
	pos.FeeGrowth0LastX128 = new(big.Int).Set(pool.FeeGrowth0X128)
	pos.FeeGrowth1LastX128 = new(big.Int).Set(pool.FeeGrowth1X128)

	callerDelta := zero
	if params.LiquidityDelta.Sign() != 0 {
		liqAbs := new(big.Int).Abs(params.LiquidityDelta)
		if params.LiquidityDelta.Sign() < 0 && pos.Liquidity.Cmp(liqAbs) < 0 {
			return zero, zero, ErrInsufficientLiquidity
		}

		sqrtA := TickToSqrtPriceX96(params.TickLower)
		sqrtB := TickToSqrtPriceX96(params.TickUpper)
		amount0, amount1 := AmountsForLiquidity(pool.SqrtPriceX96, sqrtA, sqrtB, liqAbs)
		if params.LiquidityDelta.Sign() > 0 {
			callerDelta = NewBalanceDelta(amount0, amount1)
		} else {
			callerDelta = NewBalanceDelta(new(big.Int).Neg(amount0), new(big.Int).Neg(amount1))
		}

		pos.Liquidity = new(big.Int).Add(pos.Liquidity, params.LiquidityDelta)
		if params.TickLower <= pool.Tick && pool.Tick <= params.TickUpper {
			pool.Liquidity = new(big.Int).Add(pool.Liquidity, params.LiquidityDelta)
		}
	}

	pm.setPosition(stateDB, posKey, pos)
	pm.setPool(stateDB, poolId, pool)

	if err := pm.settle(stateDB, sender, key, callerDelta.Add(feesAccrued)); err != nil {
		return zero, zero, err
	}

	if h := pm.hookFor(key, HookAfterModifyLiquidity); h != nil {
		if err := h.AfterModifyLiquidity(stateDB, sender, key, params, callerDelta); err != nil {
			return zero, zero, err
		}
	}

	return callerDelta, feesAccrued, nil
}

func growthOwed(liquidity, growthNow, growthLast *big.Int) *big.Int {
	diff := new(big.Int).Sub(growthNow, growthLast)
	if diff.Sign() <= 0 {
		return big.NewInt(0)
	}
	owed := diff.Mul(diff, liquidity)
	return owed.Div(owed, Q128)
}

// =========================================================================
// Settlement
// =========================================================================

// settle moves the currencies a delta denotes: positive amounts flow
// from the sender to pool manager custody, negative amounts the other
// way. A failed transfer aborts the enclosing operation.
func (pm *PoolManager) settle(stateDB StateDB, sender common.Address, key PoolKey, delta BalanceDelta) error {
	currencies := [2]Currency{key.Currency0, key.Currency1}
	amounts := [2]*big.Int{delta.Amount0, delta.Amount1}

	// Collect what the sender owes before paying anything out.
	for i := range amounts {
		if amounts[i].Sign() > 0 {
			if err := Transfer(stateDB, currencies[i], sender, poolManagerAddr, amounts[i]); err != nil {
				return fmt.Errorf("settle owed: %w", err)
			}
		}
	}
	for i := range amounts {
		if amounts[i].Sign() < 0 {
			if err := Transfer(stateDB, currencies[i], poolManagerAddr, sender, new(big.Int).Neg(amounts[i])); err != nil {
				return fmt.Errorf("settle due: %w", err)
			}
		}
	}
	return nil
}

// Take withdraws an amount of a currency from pool manager custody.
// Fails when custody cannot cover the amount.
func (pm *PoolManager) Take(stateDB StateDB, currency Currency, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if BalanceOf(stateDB, currency, poolManagerAddr).Cmp(amount) < 0 {
		return fmt.Errorf("%w: take %s", ErrInsufficientBalance, amount.String())
	}
	return Transfer(stateDB, currency, poolManagerAddr, to, amount)
}

// =========================================================================
// State Management
// =========================================================================

// getPool retrieves pool state, memory cache first, then storage.
func (pm *PoolManager) getPool(stateDB StateDB, poolId [32]byte) *Pool {
	if pool, ok := pm.pools[poolId]; ok {
		return pool
	}

	pool := NewPool()

	sqrtPriceKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("sqrtPrice")...))
	sqrtPriceHash := stateDB.GetState(poolManagerAddr, sqrtPriceKey)
	if sqrtPriceHash != (common.Hash{}) {
		pool.SqrtPriceX96 = new(big.Int).SetBytes(sqrtPriceHash[:])
	}

	tickKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("tick")...))
	tickHash := stateDB.GetState(poolManagerAddr, tickKey)
	if tickHash != (common.Hash{}) {
		pool.Tick = int24(binary.BigEndian.Uint32(tickHash[28:32]))
	}

	liqKey := makeStorageKey(poolLiquidityPrefix, poolId[:])
	liqHash := stateDB.GetState(poolManagerAddr, liqKey)
	if liqHash != (common.Hash{}) {
		pool.Liquidity = new(big.Int).SetBytes(liqHash[:])
	}

	fg0Key := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("feeGrowth0")...))
	fg0Hash := stateDB.GetState(poolManagerAddr, fg0Key)
	if fg0Hash != (common.Hash{}) {
		pool.FeeGrowth0X128 = new(big.Int).SetBytes(fg0Hash[:])
	}

	fg1Key := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("feeGrowth1")...))
	fg1Hash := stateDB.GetState(poolManagerAddr, fg1Key)
	if fg1Hash != (common.Hash{}) {
		pool.FeeGrowth1X128 = new(big.Int).SetBytes(fg1Hash[:])
	}

	pm.pools[poolId] = pool
	return pool
}

// setPool saves pool state.
func (pm *PoolManager) setPool(stateDB StateDB, poolId [32]byte, pool *Pool) {
	pm.pools[poolId] = pool

	sqrtPriceKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("sqrtPrice")...))
	var sqrtPriceHash common.Hash
	pool.SqrtPriceX96.FillBytes(sqrtPriceHash[:])
	stateDB.SetState(poolManagerAddr, sqrtPriceKey, sqrtPriceHash)

	tickKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("tick")...))
	var tickHash common.Hash
	binary.BigEndian.PutUint32(tickHash[28:32], uint32(pool.Tick))
	stateDB.SetState(poolManagerAddr, tickKey, tickHash)

	liqKey := makeStorageKey(poolLiquidityPrefix, poolId[:])
	var liqHash common.Hash
	pool.Liquidity.FillBytes(liqHash[:])
	stateDB.SetState(poolManagerAddr, liqKey, liqHash)

	fg0Key := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("feeGrowth0")...))
	var fg0Hash common.Hash
	pool.FeeGrowth0X128.FillBytes(fg0Hash[:])
	stateDB.SetState(poolManagerAddr, fg0Key, fg0Hash)

	fg1Key := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("feeGrowth1")...))
	var fg1Hash common.Hash
	pool.FeeGrowth1X128.FillBytes(fg1Hash[:])
	stateDB.SetState(poolManagerAddr, fg1Key, fg1Hash)
}

// getPosition retrieves position state, memory cache first.
func (pm *PoolManager) getPosition(stateDB StateDB, positionKey [32]byte) *Position {
	if pos, ok := pm.positions[positionKey]; ok {
		return pos
	}

	pos := &Position{
		Liquidity:          big.NewInt(0),
		FeeGrowth0LastX128: big.NewInt(0),
		FeeGrowth1LastX128: big.NewInt(0),
	}

	liqKey := makeStorageKey(positionPrefix, append(positionKey[:], []byte("liq")...))
	liqHash := stateDB.GetState(poolManagerAddr, liqKey)
	if liqHash != (common.Hash{}) {
		pos.Liquidity = new(big.Int).SetBytes(liqHash[:])
	}

	fg0Key := makeStorageKey(positionPrefix, append(positionKey[:], []byte("fg0")...))
	fg0Hash := stateDB.GetState(poolManagerAddr, fg0Key)
	if fg0Hash != (common.Hash{}) {
		pos.FeeGrowth0LastX128 = new(big.Int).SetBytes(fg0Hash[:])
	}

	fg1Key := makeStorageKey(positionPrefix, append(positionKey[:], []byte("fg1")...))
	fg1Hash := stateDB.GetState(poolManagerAddr, fg1Key)
	if fg1Hash != (common.Hash{}) {
		pos.FeeGrowth1LastX128 = new(big.Int).SetBytes(fg1Hash[:])
	}

	pm.positions[positionKey] = pos
	return pos
}

// setPosition saves position state.
func (pm *PoolManager) setPosition(stateDB StateDB, positionKey [32]byte, pos *Position) {
	pm.positions[positionKey] = pos

	liqKey := makeStorageKey(positionPrefix, append(positionKey[:], []byte("liq")...))
	var liqHash common.Hash
	pos.Liquidity.FillBytes(liqHash[:])
	stateDB.SetState(poolManagerAddr, liqKey, liqHash)

	fg0Key := makeStorageKey(positionPrefix, append(positionKey[:], []byte("fg0")...))
	var fg0Hash common.Hash
	pos.FeeGrowth0LastX128.FillBytes(fg0Hash[:])
	stateDB.SetState(poolManagerAddr, fg0Key, fg0Hash)

	fg1Key := makeStorageKey(positionPrefix, append(positionKey[:], []byte("fg1")...))
	var fg1Hash common.Hash
	pos.FeeGrowth1LastX128.FillBytes(fg1Hash[:])
	stateDB.SetState(poolManagerAddr, fg1Key, fg1Hash)
}

// =========================================================================
// View Functions
// =========================================================================

// GetPool returns the current state of a pool.
func (pm *PoolManager) GetPool(stateDB StateDB, key PoolKey) (*Pool, error) {
	pool := pm.getPool(stateDB, key.ID())
	if !pool.IsInitialized() {
		return nil, ErrPoolNotInitialized
	}
	return pool, nil
}

// CurrentTick returns a pool's authoritative post-swap price tick.
func (pm *PoolManager) CurrentTick(stateDB StateDB, key PoolKey) (int24, error) {
	pool := pm.getPool(stateDB, key.ID())
	if !pool.IsInitialized() {
		return 0, ErrPoolNotInitialized
	}
	return pool.Tick, nil
}

// GetPosition returns a liquidity position.
func (pm *PoolManager) GetPosition(
	stateDB StateDB,
	owner common.Address,
	tickLower, tickUpper int24,
	salt [32]byte,
) *Position {
	return pm.getPosition(stateDB, PositionKey(owner, tickLower, tickUpper, salt))
}
