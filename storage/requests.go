package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/cipherpool/cipherpool/types"
)

// PendingRequest retrieves the in-flight request with the given id. Returns
// ErrNotFound if it does not exist (never opened, or already closed).
func (s *Storage) PendingRequest(id types.RequestID) (*PendingRequest, error) {
	pr := &PendingRequest{}
	if err := s.getArtifact(requestPrefix, u64Key(uint64(id)), pr); err != nil {
		return nil, err
	}
	return pr, nil
}

// SetPendingRequest stores the request and marks its purpose slot as open.
func (s *Storage) SetPendingRequest(pr *PendingRequest) error {
	if pr == nil {
		return fmt.Errorf("nil pending request")
	}
	if err := s.setArtifact(requestPrefix, u64Key(uint64(pr.ID)), pr); err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), purposeSlotPrefix)
	if err := wTx.Set([]byte{byte(pr.Purpose)}, u64Key(uint64(pr.ID))); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// DeletePendingRequest removes the request and, if it owns the purpose slot,
// clears the slot as well. Returns ErrNotFound for unknown ids.
func (s *Storage) DeletePendingRequest(id types.RequestID) error {
	pr, err := s.PendingRequest(id)
	if err != nil {
		return err
	}
	if err := s.deleteArtifact(requestPrefix, u64Key(uint64(id))); err != nil {
		return err
	}
	if slotID, ok := s.OpenRequestByPurpose(pr.Purpose); ok && slotID == id {
		wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), purposeSlotPrefix)
		if err := wTx.Delete([]byte{byte(pr.Purpose)}); err != nil {
			wTx.Discard()
			return err
		}
		return wTx.Commit()
	}
	return nil
}

// OpenRequestByPurpose returns the id of the outstanding request for the
// given purpose, if any.
func (s *Storage) OpenRequestByPurpose(p types.Purpose) (types.RequestID, bool) {
	rTx := prefixeddb.NewPrefixedReader(s.db, purposeSlotPrefix)
	data, err := rTx.Get([]byte{byte(p)})
	if err != nil {
		return 0, false
	}
	id := types.RequestID(binary.BigEndian.Uint64(data))
	// The slot may survive a deleted request only through a partial write;
	// verify the request itself still exists.
	if _, err := s.PendingRequest(id); errors.Is(err, ErrNotFound) {
		return 0, false
	}
	return id, true
}

// ListPendingRequests returns every in-flight request.
func (s *Storage) ListPendingRequests() ([]*PendingRequest, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, requestPrefix)
	var out []*PendingRequest
	var iterErr error
	if err := rTx.Iterate(nil, func(_, v []byte) bool {
		pr := &PendingRequest{}
		if err := decodeArtifact(v, pr); err != nil {
			iterErr = err
			return false
		}
		out = append(out, pr)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}
