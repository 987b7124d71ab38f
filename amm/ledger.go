// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// StateDB is the interface for accessing and modifying account state.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

var poolManagerAddr = common.HexToAddress(PoolManagerAddress)

// Storage key prefixes for pool manager state
var (
	poolStatePrefix     = []byte("pool")
	poolLiquidityPrefix = []byte("pliq")
	positionPrefix      = []byte("posn")
	tokenBalancePrefix  = []byte("tbal")
)

// makeStorageKey creates a storage key from a prefix and identifier.
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// tokenBalanceKey is the storage slot holding a holder's token balance.
func tokenBalanceKey(token, holder common.Address) common.Hash {
	id := make([]byte, 0, 40)
	id = append(id, token.Bytes()...)
	id = append(id, holder.Bytes()...)
	return makeStorageKey(tokenBalancePrefix, id)
}

// BalanceOf returns a holder's balance of a currency. Native balances
// come from the account state; token balances live in the pool manager's
// storage slots.
func BalanceOf(stateDB StateDB, currency Currency, holder common.Address) *big.Int {
	if currency.IsNative() {
		return stateDB.GetBalance(holder).ToBig()
	}
	slot := stateDB.GetState(poolManagerAddr, tokenBalanceKey(currency.Address, holder))
	return new(big.Int).SetBytes(slot[:])
}

func setTokenBalance(stateDB StateDB, token, holder common.Address, amount *big.Int) {
	var slot common.Hash
	amount.FillBytes(slot[:])
	stateDB.SetState(poolManagerAddr, tokenBalanceKey(token, holder), slot)
}

// Transfer moves an amount of a currency between holders. A negative or
// zero amount and an underfunded sender both fail without state change.
func Transfer(stateDB StateDB, currency Currency, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}

	if currency.IsNative() {
		amountU256, overflow := uint256.FromBig(amount)
		if overflow {
			return ErrInvalidAmount
		}
		if stateDB.GetBalance(from).Cmp(amountU256) < 0 {
			return fmt.Errorf("%w: native, holder=%s", ErrInsufficientBalance, from.Hex())
		}
		stateDB.SubBalance(from, amountU256)
		stateDB.AddBalance(to, amountU256)
		return nil
	}

	fromBal := BalanceOf(stateDB, currency, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token=%s, holder=%s", ErrInsufficientBalance, currency.Address.Hex(), from.Hex())
	}
	toBal := BalanceOf(stateDB, currency, to)
	setTokenBalance(stateDB, currency.Address, from, new(big.Int).Sub(fromBal, amount))
	setTokenBalance(stateDB, currency.Address, to, new(big.Int).Add(toBal, amount))
	return nil
}

// Mint credits a holder with a token amount. Used to seed token supply;
// native funds come from account balances directly.
func Mint(stateDB StateDB, currency Currency, to common.Address, amount *big.Int) error {
	if currency.IsNative() {
		amountU256, overflow := uint256.FromBig(amount)
		if overflow {
			return ErrInvalidAmount
		}
		stateDB.AddBalance(to, amountU256)
		return nil
	}
	bal := BalanceOf(stateDB, currency, to)
	setTokenBalance(stateDB, currency.Address, to, new(big.Int).Add(bal, amount))
	return nil
}
