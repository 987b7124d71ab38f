// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// MemStateDB is an in-memory StateDB for tests and standalone wiring.
type MemStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
}

// NewMemStateDB creates an empty in-memory state.
func NewMemStateDB() *MemStateDB {
	return &MemStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (m *MemStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	return m.storage[addr][key]
}

func (m *MemStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slots, ok := m.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		m.storage[addr] = slots
	}
	slots[key] = value
}

func (m *MemStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MemStateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	bal := m.GetBalance(addr)
	m.balances[addr] = bal.Add(bal, amount)
}

func (m *MemStateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	bal := m.GetBalance(addr)
	m.balances[addr] = bal.Sub(bal, amount)
}
