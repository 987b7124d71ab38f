// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amm implements a singleton concentrated-liquidity pool manager
// with typed hook callbacks. It is the settlement engine that launch-pool
// hooks attach to: pools, positions, swaps, liquidity modifications and a
// currency ledger (native plus token balances held in account storage).
package amm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// PoolManagerAddress is the canonical custody address of the singleton
// pool manager.
const PoolManagerAddress = "0x0000000000000000000000000000000000009010"

// FeeMax caps a pool's base fee at 10% (basis points of a million).
const FeeMax uint24 = 100_000

// Currency represents a token. The zero address is the native currency,
// which needs no wrapping.
type Currency struct {
	Address common.Address
}

// NativeCurrency is the chain's native currency.
var NativeCurrency = Currency{Address: common.Address{}}

// IsNative returns true if this currency is the native currency.
func (c Currency) IsNative() bool {
	return c.Address == common.Address{}
}

// ToBytes serializes the currency for storage.
func (c Currency) ToBytes() []byte {
	return c.Address.Bytes()
}

// CurrencyFromBytes deserializes a currency from storage.
func CurrencyFromBytes(data []byte) Currency {
	return Currency{Address: common.BytesToAddress(data)}
}

// SortCurrencies returns the two currencies in canonical order
// (lower address first).
func SortCurrencies(a, b Currency) (Currency, Currency) {
	if bytes.Compare(a.Address.Bytes(), b.Address.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PoolKey uniquely identifies a pool. Currencies are sorted canonically
// (currency0 < currency1); Hooks is the identity of the pool's hook set,
// zero for none.
type PoolKey struct {
	Currency0   Currency
	Currency1   Currency
	Fee         uint24 // base fee in hundredths of a basis point
	TickSpacing int24
	Hooks       common.Address
}

// ID computes the unique pool identifier.
func (pk PoolKey) ID() [32]byte {
	h := blake3.New()
	h.Write(pk.Currency0.ToBytes())
	h.Write(pk.Currency1.ToBytes())

	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], uint32(pk.Fee))
	h.Write(feeBytes[:])

	var tickBytes [4]byte
	binary.BigEndian.PutUint32(tickBytes[:], uint32(pk.TickSpacing))
	h.Write(tickBytes[:])

	h.Write(pk.Hooks.Bytes())

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// ToBytes serializes a pool key for storage. Layout:
// currency0 (20) || currency1 (20) || fee (4) || tickSpacing (4) || hooks (20).
func (pk PoolKey) ToBytes() []byte {
	data := make([]byte, 68)
	copy(data[0:20], pk.Currency0.ToBytes())
	copy(data[20:40], pk.Currency1.ToBytes())
	binary.BigEndian.PutUint32(data[40:44], uint32(pk.Fee))
	binary.BigEndian.PutUint32(data[44:48], uint32(pk.TickSpacing))
	copy(data[48:68], pk.Hooks.Bytes())
	return data
}

// PoolKeyFromBytes deserializes a pool key from storage.
func PoolKeyFromBytes(data []byte) (PoolKey, error) {
	if len(data) < 68 {
		return PoolKey{}, errors.New("invalid pool key data length")
	}
	pk := PoolKey{}
	pk.Currency0 = CurrencyFromBytes(data[0:20])
	pk.Currency1 = CurrencyFromBytes(data[20:40])
	pk.Fee = uint24(binary.BigEndian.Uint32(data[40:44]))
	pk.TickSpacing = int24(binary.BigEndian.Uint32(data[44:48]))
	pk.Hooks = common.BytesToAddress(data[48:68])
	return pk, nil
}

// BalanceDelta represents the net currency changes settled by an
// operation. Positive = owed to the pool manager by the caller,
// negative = owed to the caller.
type BalanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// NewBalanceDelta creates a new balance delta.
func NewBalanceDelta(amount0, amount1 *big.Int) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
	}
}

// ZeroBalanceDelta returns a zero balance delta.
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{
		Amount0: big.NewInt(0),
		Amount1: big.NewInt(0),
	}
}

// Add combines two balance deltas.
func (bd BalanceDelta) Add(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Add(bd.Amount0, other.Amount0),
		Amount1: new(big.Int).Add(bd.Amount1, other.Amount1),
	}
}

// Negate inverts the balance delta signs.
func (bd BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Neg(bd.Amount0),
		Amount1: new(big.Int).Neg(bd.Amount1),
	}
}

// IsZero returns true if both amounts are zero.
func (bd BalanceDelta) IsZero() bool {
	return bd.Amount0.Sign() == 0 && bd.Amount1.Sign() == 0
}

// Pool represents the state of a liquidity pool.
type Pool struct {
	SqrtPriceX96   *big.Int // sqrt(price) * 2^96 (Q64.96)
	Tick           int24    // current tick
	Liquidity      *big.Int // active liquidity (L)
	FeeGrowth0X128 *big.Int // base-fee growth for currency0 (Q128.128)
	FeeGrowth1X128 *big.Int // base-fee growth for currency1 (Q128.128)
}

// IsInitialized returns true if the pool has been initialized.
func (p *Pool) IsInitialized() bool {
	return p.SqrtPriceX96 != nil && p.SqrtPriceX96.Sign() > 0
}

// NewPool creates a new uninitialized pool.
func NewPool() *Pool {
	return &Pool{
		SqrtPriceX96:   big.NewInt(0),
		Tick:           0,
		Liquidity:      big.NewInt(0),
		FeeGrowth0X128: big.NewInt(0),
		FeeGrowth1X128: big.NewInt(0),
	}
}

// Position represents a liquidity position.
type Position struct {
	Owner              common.Address
	TickLower          int24
	TickUpper          int24
	Liquidity          *big.Int
	FeeGrowth0LastX128 *big.Int // global growth snapshot at last touch
	FeeGrowth1LastX128 *big.Int
}

// PositionKey computes the unique position identifier.
func PositionKey(owner common.Address, tickLower, tickUpper int24, salt [32]byte) [32]byte {
	h := blake3.New()
	h.Write(owner.Bytes())

	var tickBytes [8]byte
	binary.BigEndian.PutUint32(tickBytes[:4], uint32(tickLower))
	binary.BigEndian.PutUint32(tickBytes[4:], uint32(tickUpper))
	h.Write(tickBytes[:])
	h.Write(salt[:])

	var key [32]byte
	h.Digest().Read(key[:])
	return key
}

// SwapParams contains parameters for a swap. AmountSpecified is negative
// for exact-input swaps and positive for exact-output swaps.
type SwapParams struct {
	ZeroForOne        bool     // true = swap currency0 for currency1
	AmountSpecified   *big.Int // negative = exact input, positive = exact output
	SqrtPriceLimitX96 *big.Int // optional price bound, nil or zero = none
}

// ExactInput returns true if the swap specifies the input amount.
func (sp SwapParams) ExactInput() bool {
	return sp.AmountSpecified != nil && sp.AmountSpecified.Sign() < 0
}

// ModifyLiquidityParams contains parameters for adding or removing
// liquidity. A zero LiquidityDelta only harvests accrued base fees.
type ModifyLiquidityParams struct {
	TickLower      int24
	TickUpper      int24
	LiquidityDelta *big.Int // positive = add, negative = remove
	Salt           [32]byte // position salt for uniqueness
}

// Errors
var (
	ErrPoolNotInitialized     = errors.New("pool not initialized")
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrInvalidTickRange       = errors.New("invalid tick range")
	ErrTickOutOfRange         = errors.New("tick out of range")
	ErrInvalidFee             = errors.New("invalid fee")
	ErrCurrencyNotSorted      = errors.New("currencies not sorted")
	ErrInvalidSqrtPrice       = errors.New("invalid sqrt price")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrHookNotRegistered      = errors.New("hook not registered")
	ErrHookInvalidAddress     = errors.New("hook address doesn't match capabilities")
)

// Constants for math
var (
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)

	MinTick int24 = -887272
	MaxTick int24 = 887272

	MinSqrtRatio    = new(big.Int).SetUint64(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// uint24 type alias for fees
type uint24 = uint32

// int24 type alias for ticks
type int24 = int32
