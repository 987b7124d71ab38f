// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/launch/amm"
	"github.com/zeebo/blake3"
)

// Persisted layout: one PoolState record and one milestone list per
// asset identity, plus a pool-ID cross-index. Records are length-framed
// binary; big.Ints are 32-byte big-endian words.

var (
	stateKeyPrefix     = []byte("lfst")
	milestoneKeyPrefix = []byte("lmst")
	poolIndexKeyPrefix = []byte("lidx")
)

func storeKey(prefix []byte, id []byte) []byte {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	key := make([]byte, 32)
	h.Digest().Read(key)
	return key
}

func putBig(buf []byte, v *big.Int) {
	if v != nil {
		v.FillBytes(buf[:32])
	}
}

func encodePoolState(ps *PoolState) []byte {
	size := 20 + 20 + 1 + 4 + 68 + 4 + len(ps.Positions)*72 + 4 + len(ps.Beneficiaries)*52
	data := make([]byte, 0, size)

	data = append(data, ps.Asset.Bytes()...)
	data = append(data, ps.Numeraire.Bytes()...)
	data = append(data, byte(ps.Status))

	var tickBuf [4]byte
	binary.BigEndian.PutUint32(tickBuf[:], uint32(ps.FarTick))
	data = append(data, tickBuf[:]...)

	data = append(data, ps.Key.ToBytes()...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(ps.Positions)))
	data = append(data, countBuf[:]...)
	for _, p := range ps.Positions {
		var rec [72]byte
		binary.BigEndian.PutUint32(rec[0:4], uint32(p.TickLower))
		binary.BigEndian.PutUint32(rec[4:8], uint32(p.TickUpper))
		putBig(rec[8:40], p.Liquidity)
		copy(rec[40:72], p.Salt[:])
		data = append(data, rec[:]...)
	}

	binary.BigEndian.PutUint32(countBuf[:], uint32(len(ps.Beneficiaries)))
	data = append(data, countBuf[:]...)
	for _, b := range ps.Beneficiaries {
		var rec [52]byte
		copy(rec[0:20], b.Beneficiary.Bytes())
		putBig(rec[20:52], b.Share)
		data = append(data, rec[:]...)
	}

	return data
}

func decodePoolState(data []byte) (*PoolState, error) {
	if len(data) < 20+20+1+4+68+4 {
		return nil, errors.New("pool state record truncated")
	}
	ps := &PoolState{}
	off := 0

	ps.Asset = common.BytesToAddress(data[off : off+20])
	off += 20
	ps.Numeraire = common.BytesToAddress(data[off : off+20])
	off += 20
	ps.Status = PoolStatus(data[off])
	off++
	ps.FarTick = int32(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4

	key, err := amm.PoolKeyFromBytes(data[off : off+68])
	if err != nil {
		return nil, err
	}
	ps.Key = key
	off += 68

	nPos := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) < off+nPos*72+4 {
		return nil, errors.New("pool state positions truncated")
	}
	ps.Positions = make([]PositionSpec, nPos)
	for i := 0; i < nPos; i++ {
		rec := data[off : off+72]
		ps.Positions[i] = PositionSpec{
			TickLower: int32(binary.BigEndian.Uint32(rec[0:4])),
			TickUpper: int32(binary.BigEndian.Uint32(rec[4:8])),
			Liquidity: new(big.Int).SetBytes(rec[8:40]),
		}
		copy(ps.Positions[i].Salt[:], rec[40:72])
		off += 72
	}

	nBen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) < off+nBen*52 {
		return nil, errors.New("pool state beneficiaries truncated")
	}
	ps.Beneficiaries = make([]BeneficiaryEntry, nBen)
	for i := 0; i < nBen; i++ {
		rec := data[off : off+52]
		ps.Beneficiaries[i] = BeneficiaryEntry{
			Beneficiary: common.BytesToAddress(rec[0:20]),
			Share:       new(big.Int).SetBytes(rec[20:52]),
		}
		off += 52
	}

	return ps, nil
}

func encodeMilestones(list []*MilestonePosition) []byte {
	data := make([]byte, 4, 4+len(list)*93)
	binary.BigEndian.PutUint32(data[0:4], uint32(len(list)))
	for _, m := range list {
		var rec [93]byte
		binary.BigEndian.PutUint32(rec[0:4], uint32(m.TickLower))
		binary.BigEndian.PutUint32(rec[4:8], uint32(m.TickUpper))
		putBig(rec[8:40], m.Liquidity)
		copy(rec[40:72], m.Salt[:])
		copy(rec[72:92], m.Recipient.Bytes())
		if m.Withdrawn {
			rec[92] = 1
		}
		data = append(data, rec[:]...)
	}
	return data
}

func decodeMilestones(data []byte) ([]*MilestonePosition, error) {
	if len(data) < 4 {
		return nil, errors.New("milestone record truncated")
	}
	n := int(binary.BigEndian.Uint32(data[0:4]))
	if len(data) < 4+n*93 {
		return nil, errors.New("milestone entries truncated")
	}
	list := make([]*MilestonePosition, n)
	off := 4
	for i := 0; i < n; i++ {
		rec := data[off : off+93]
		m := &MilestonePosition{
			TickLower: int32(binary.BigEndian.Uint32(rec[0:4])),
			TickUpper: int32(binary.BigEndian.Uint32(rec[4:8])),
			Liquidity: new(big.Int).SetBytes(rec[8:40]),
			Recipient: common.BytesToAddress(rec[72:92]),
			Withdrawn: rec[92] == 1,
		}
		copy(m.Salt[:], rec[40:72])
		list[i] = m
		off += 93
	}
	return list, nil
}

// persistState writes an asset's lifecycle record and pool cross-index.
func (in *Initializer) persistState(ps *PoolState) error {
	if err := in.db.Put(storeKey(stateKeyPrefix, ps.Asset.Bytes()), encodePoolState(ps)); err != nil {
		return fmt.Errorf("persist pool state: %w", err)
	}
	id := ps.Key.ID()
	if err := in.db.Put(storeKey(poolIndexKeyPrefix, id[:]), ps.Asset.Bytes()); err != nil {
		return fmt.Errorf("persist pool index: %w", err)
	}
	return nil
}

// persistMilestones writes an asset's milestone list.
func (in *Initializer) persistMilestones(asset common.Address, list []*MilestonePosition) error {
	if err := in.db.Put(storeKey(milestoneKeyPrefix, asset.Bytes()), encodeMilestones(list)); err != nil {
		return fmt.Errorf("persist milestones: %w", err)
	}
	return nil
}

// loadState reads an asset's lifecycle record, ErrAssetNotFound when the
// asset was never initialized.
func (in *Initializer) loadState(asset common.Address) (*PoolState, error) {
	data, err := in.db.Get(storeKey(stateKeyPrefix, asset.Bytes()))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset.Hex())
	}
	if err != nil {
		return nil, err
	}
	return decodePoolState(data)
}

// loadMilestones reads an asset's milestone list, empty when none.
func (in *Initializer) loadMilestones(asset common.Address) ([]*MilestonePosition, error) {
	data, err := in.db.Get(storeKey(milestoneKeyPrefix, asset.Bytes()))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMilestones(data)
}

// loadAssetForPool resolves the pool-ID cross-index.
func (in *Initializer) loadAssetForPool(poolID [32]byte) (common.Address, error) {
	data, err := in.db.Get(storeKey(poolIndexKeyPrefix, poolID[:]))
	if errors.Is(err, database.ErrNotFound) {
		return common.Address{}, fmt.Errorf("%w: %x", ErrPoolNotFound, poolID)
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}
