// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
)

// =========================================================================
// Hook Permission Tests
// =========================================================================

func TestEncodeDecodeHookPermissions(t *testing.T) {
	tests := []struct {
		name        string
		permissions HookPermissions
	}{
		{
			name:        "no permissions",
			permissions: HookPermissions{},
		},
		{
			name: "beforeSwap only",
			permissions: HookPermissions{
				BeforeSwap: true,
			},
		},
		{
			name: "afterSwap only",
			permissions: HookPermissions{
				AfterSwap: true,
			},
		},
		{
			name: "swap hooks",
			permissions: HookPermissions{
				BeforeSwap: true,
				AfterSwap:  true,
			},
		},
		{
			name: "all hooks",
			permissions: HookPermissions{
				BeforeInitialize:      true,
				AfterInitialize:       true,
				BeforeModifyLiquidity: true,
				AfterModifyLiquidity:  true,
				BeforeSwap:            true,
				AfterSwap:             true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := EncodeHookPermissions(tt.permissions)
			decoded := DecodeHookPermissions(flags)
			if decoded != tt.permissions {
				t.Errorf("permissions mismatch: got %+v, want %+v", decoded, tt.permissions)
			}
		})
	}
}

func TestGenerateHookAddress(t *testing.T) {
	deployer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	var salt [32]byte
	salt[31] = 1

	permissions := HookPermissions{
		BeforeSwap: true,
		AfterSwap:  true,
	}
	addr := GenerateHookAddress(deployer, salt, permissions)

	// The leading two bytes carry the permission flags.
	flags := HookFlags(binary.BigEndian.Uint16(addr[0:2]))
	if flags != EncodeHookPermissions(permissions) {
		t.Errorf("flags mismatch: got %b, want %b", flags, EncodeHookPermissions(permissions))
	}

	if !HasPermission(addr, HookBeforeSwap) {
		t.Error("expected beforeSwap permission")
	}
	if !HasPermission(addr, HookAfterSwap) {
		t.Error("expected afterSwap permission")
	}
	if HasPermission(addr, HookBeforeInitialize) {
		t.Error("unexpected beforeInitialize permission")
	}

	// Different salts yield different addresses with the same flags.
	var salt2 [32]byte
	salt2[31] = 2
	addr2 := GenerateHookAddress(deployer, salt2, permissions)
	if addr == addr2 {
		t.Error("expected distinct addresses for distinct salts")
	}
	if addr[0] != addr2[0] || addr[1] != addr2[1] {
		t.Error("expected identical flag bytes for identical permissions")
	}
}

// =========================================================================
// Hook Registry Tests
// =========================================================================

type noopHooks struct{}

func (noopHooks) BeforeInitialize(StateDB, PoolKey, *big.Int) error { return nil }
func (noopHooks) AfterInitialize(StateDB, PoolKey, *big.Int, int24) error {
	return nil
}
func (noopHooks) BeforeSwap(StateDB, common.Address, PoolKey, SwapParams) (BalanceDelta, error) {
	return ZeroBalanceDelta(), nil
}
func (noopHooks) AfterSwap(StateDB, common.Address, PoolKey, SwapParams, BalanceDelta) (BalanceDelta, error) {
	return ZeroBalanceDelta(), nil
}
func (noopHooks) BeforeModifyLiquidity(StateDB, common.Address, PoolKey, ModifyLiquidityParams) error {
	return nil
}
func (noopHooks) AfterModifyLiquidity(StateDB, common.Address, PoolKey, ModifyLiquidityParams, BalanceDelta) error {
	return nil
}

func TestHookRegistry(t *testing.T) {
	registry := NewHookRegistry()
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if got := registry.Lookup(addr); got != nil {
		t.Errorf("expected nil lookup before register, got %v", got)
	}

	impl := noopHooks{}
	if err := registry.Register(addr, impl); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if got := registry.Lookup(addr); got == nil {
		t.Error("expected lookup hit after register")
	}

	if err := registry.Register(common.Address{}, impl); err == nil {
		t.Error("expected error registering zero address")
	}
	if err := registry.Register(addr, nil); err == nil {
		t.Error("expected error registering nil implementation")
	}
	if got := registry.Lookup(common.Address{}); got != nil {
		t.Error("expected nil lookup for zero address")
	}
}
