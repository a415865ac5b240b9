package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// countKey indexes the number of participants inside the index prefix.
var countKey = []byte("count")

// Participant retrieves the ledger entry for the given address. Returns
// ErrNotFound if the address never committed.
func (s *Storage) Participant(addr common.Address) (*Participant, error) {
	p := &Participant{}
	if err := s.getArtifact(participantPrefix, addr.Bytes(), p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetParticipant stores the ledger entry for p.Address.
func (s *Storage) SetParticipant(p *Participant) error {
	if p == nil {
		return fmt.Errorf("nil participant")
	}
	return s.setArtifact(participantPrefix, p.Address.Bytes(), p)
}

// AppendParticipantIndex appends addr to the insertion-order enumeration and
// returns its index. Addresses are never removed, so issued indices stay
// valid.
func (s *Storage) AppendParticipantIndex(addr common.Address) (uint64, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	count, err := s.participantCount()
	if err != nil {
		return 0, err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), participantIdxPrefix)
	if err := wTx.Set(u64Key(count), addr.Bytes()); err != nil {
		wTx.Discard()
		return 0, err
	}
	if err := wTx.Set(countKey, u64Key(count+1)); err != nil {
		wTx.Discard()
		return 0, err
	}
	return count, wTx.Commit()
}

// ParticipantByIndex returns the address committed at position i of the
// insertion order.
func (s *Storage) ParticipantByIndex(i uint64) (common.Address, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, participantIdxPrefix)
	data, err := rTx.Get(u64Key(i))
	if err != nil {
		return common.Address{}, ErrNotFound
	}
	return common.BytesToAddress(data), nil
}

// ParticipantCount returns the number of committed participants.
func (s *Storage) ParticipantCount() (uint64, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.participantCount()
}

func (s *Storage) participantCount() (uint64, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, participantIdxPrefix)
	data, err := rTx.Get(countKey)
	if err != nil {
		return 0, nil // empty index
	}
	return binary.BigEndian.Uint64(data), nil
}

// ListParticipants returns every committed address in insertion order.
func (s *Storage) ListParticipants() ([]common.Address, error) {
	count, err := s.ParticipantCount()
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, 0, count)
	for i := uint64(0); i < count; i++ {
		addr, err := s.ParticipantByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
