// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Hooks is the callback contract a pool's hook set implements. The pool
// manager invokes the callbacks whose capability bits are present in the
// hook address. BeforeSwap and AfterSwap return a fee delta that the
// pool manager folds into the swapper's settled delta, reflecting funds
// the hook withdrew from pool manager custody during the callback.
type Hooks interface {
	BeforeInitialize(stateDB StateDB, key PoolKey, sqrtPriceX96 *big.Int) error
	AfterInitialize(stateDB StateDB, key PoolKey, sqrtPriceX96 *big.Int, tick int24) error

	BeforeSwap(stateDB StateDB, sender common.Address, key PoolKey, params SwapParams) (BalanceDelta, error)
	AfterSwap(stateDB StateDB, sender common.Address, key PoolKey, params SwapParams, delta BalanceDelta) (BalanceDelta, error)

	BeforeModifyLiquidity(stateDB StateDB, sender common.Address, key PoolKey, params ModifyLiquidityParams) error
	AfterModifyLiquidity(stateDB StateDB, sender common.Address, key PoolKey, params ModifyLiquidityParams, delta BalanceDelta) error
}

// HookFlags is a bitmap of hook capabilities.
type HookFlags uint16

const (
	HookBeforeInitialize HookFlags = 1 << iota
	HookAfterInitialize
	HookBeforeModifyLiquidity
	HookAfterModifyLiquidity
	HookBeforeSwap
	HookAfterSwap
)

// HookPermissions is the expanded form of HookFlags.
type HookPermissions struct {
	BeforeInitialize      bool
	AfterInitialize       bool
	BeforeModifyLiquidity bool
	AfterModifyLiquidity  bool
	BeforeSwap            bool
	AfterSwap             bool
}

// EncodeHookPermissions encodes permissions into a HookFlags bitmap.
func EncodeHookPermissions(p HookPermissions) HookFlags {
	var flags HookFlags
	if p.BeforeInitialize {
		flags |= HookBeforeInitialize
	}
	if p.AfterInitialize {
		flags |= HookAfterInitialize
	}
	if p.BeforeModifyLiquidity {
		flags |= HookBeforeModifyLiquidity
	}
	if p.AfterModifyLiquidity {
		flags |= HookAfterModifyLiquidity
	}
	if p.BeforeSwap {
		flags |= HookBeforeSwap
	}
	if p.AfterSwap {
		flags |= HookAfterSwap
	}
	return flags
}

// DecodeHookPermissions decodes a HookFlags bitmap into permissions.
func DecodeHookPermissions(flags HookFlags) HookPermissions {
	return HookPermissions{
		BeforeInitialize:      flags&HookBeforeInitialize != 0,
		AfterInitialize:       flags&HookAfterInitialize != 0,
		BeforeModifyLiquidity: flags&HookBeforeModifyLiquidity != 0,
		AfterModifyLiquidity:  flags&HookAfterModifyLiquidity != 0,
		BeforeSwap:            flags&HookBeforeSwap != 0,
		AfterSwap:             flags&HookAfterSwap != 0,
	}
}

// GenerateHookAddress derives a hook address whose leading two bytes
// encode the given permissions, CREATE2-style from deployer and salt.
func GenerateHookAddress(deployer common.Address, salt [32]byte, permissions HookPermissions) common.Address {
	flags := EncodeHookPermissions(permissions)

	h := blake3.New()
	h.Write([]byte{0xff})
	h.Write(deployer.Bytes())
	h.Write(salt[:])

	var hash [32]byte
	h.Digest().Read(hash[:])

	var addr common.Address
	copy(addr[:], hash[12:32])
	binary.BigEndian.PutUint16(addr[0:2], uint16(flags))
	return addr
}

// HasPermission checks if an address carries a specific hook capability.
func HasPermission(addr common.Address, flag HookFlags) bool {
	addrFlags := HookFlags(binary.BigEndian.Uint16(addr[0:2]))
	return addrFlags&flag != 0
}

// HookRegistry binds hook addresses appearing in pool keys to concrete
// implementations. Bindings are established at construction time; the
// pool manager never dispatches to an unbound address.
type HookRegistry struct {
	hooks map[common.Address]Hooks
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[common.Address]Hooks)}
}

// Register binds an implementation to a hook address.
func (hr *HookRegistry) Register(addr common.Address, impl Hooks) error {
	if addr == (common.Address{}) || impl == nil {
		return ErrHookInvalidAddress
	}
	hr.hooks[addr] = impl
	return nil
}

// Lookup returns the implementation bound to an address, or nil.
func (hr *HookRegistry) Lookup(addr common.Address) Hooks {
	if addr == (common.Address{}) {
		return nil
	}
	return hr.hooks[addr]
}
