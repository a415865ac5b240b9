package storage

import (
	"encoding/binary"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/cipherpool/cipherpool/types"
)

var (
	poolKey          = []byte("account")
	payoutCountKey   = []byte("count")
	requestIDMarkKey = []byte("requestIdMark")
)

// Pool retrieves the persisted pool account. Returns ErrNotFound before the
// first SetPool.
func (s *Storage) Pool() (*PoolState, error) {
	ps := &PoolState{}
	if err := s.getArtifact(poolPrefix, poolKey, ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// SetPool stores the pool account.
func (s *Storage) SetPool(ps *PoolState) error {
	if ps == nil {
		return fmt.Errorf("nil pool state")
	}
	return s.setArtifact(poolPrefix, poolKey, ps)
}

// AppendPayout appends one entry to the settled-payout journal.
func (s *Storage) AppendPayout(p *types.Payout) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	rTx := prefixeddb.NewPrefixedReader(s.db, payoutPrefix)
	var count uint64
	if data, err := rTx.Get(payoutCountKey); err == nil {
		count = binary.BigEndian.Uint64(data)
	}
	val, err := encodeArtifact(p)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), payoutPrefix)
	if err := wTx.Set(u64Key(count), val); err != nil {
		wTx.Discard()
		return err
	}
	if err := wTx.Set(payoutCountKey, u64Key(count+1)); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// Payouts returns the settled-payout journal in append order.
func (s *Storage) Payouts() ([]*types.Payout, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, payoutPrefix)
	var count uint64
	if data, err := rTx.Get(payoutCountKey); err == nil {
		count = binary.BigEndian.Uint64(data)
	}
	payouts := make([]*types.Payout, 0, count)
	for i := uint64(0); i < count; i++ {
		data, err := rTx.Get(u64Key(i))
		if err != nil {
			return nil, fmt.Errorf("payout %d: %w", i, err)
		}
		p := &types.Payout{}
		if err := decodeArtifact(data, p); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, nil
}

// RequestIDMark returns the persisted engine request-id high-water mark, or
// 0 if none was ever stored.
func (s *Storage) RequestIDMark() types.RequestID {
	rTx := prefixeddb.NewPrefixedReader(s.db, metaPrefix)
	data, err := rTx.Get(requestIDMarkKey)
	if err != nil {
		return 0
	}
	return types.RequestID(binary.BigEndian.Uint64(data))
}

// SetRequestIDMark persists the engine request-id high-water mark.
func (s *Storage) SetRequestIDMark(id types.RequestID) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), metaPrefix)
	if err := wTx.Set(requestIDMarkKey, u64Key(uint64(id))); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}
