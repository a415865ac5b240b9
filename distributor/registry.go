package distributor

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// requestRegistry tracks the pending decryption requests of the pool. At
// most one request per purpose can be outstanding; opening a second one for
// the same purpose fails with ErrRequestInFlight.
type requestRegistry struct {
	stg *storage.Storage
}

// open records a new pending request. The purpose slot must be free.
func (r *requestRegistry) open(id types.RequestID, purpose types.Purpose,
	originator common.Address, declared *types.BigInt,
) error {
	if _, busy := r.stg.OpenRequestByPurpose(purpose); busy {
		return ErrRequestInFlight
	}
	return r.stg.SetPendingRequest(&storage.PendingRequest{
		ID:             id,
		Purpose:        purpose,
		Originator:     originator,
		DeclaredAmount: declared,
		CreatedAt:      time.Now().Unix(),
	})
}

// inFlight reports whether the purpose slot is occupied.
func (r *requestRegistry) inFlight(purpose types.Purpose) bool {
	_, busy := r.stg.OpenRequestByPurpose(purpose)
	return busy
}

// resolve returns the pending request for id only if it is the outstanding
// request of its purpose slot. A matching id whose slot has moved on is
// stale and resolves to ErrUnknownRequest.
func (r *requestRegistry) resolve(id types.RequestID) (*storage.PendingRequest, error) {
	req, err := r.stg.PendingRequest(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownRequest
		}
		return nil, fmt.Errorf("load request %d: %w", id, err)
	}
	openID, busy := r.stg.OpenRequestByPurpose(req.Purpose)
	if !busy || openID != id {
		return nil, ErrUnknownRequest
	}
	return req, nil
}

// close removes a request and frees its purpose slot.
func (r *requestRegistry) close(id types.RequestID) error {
	return r.stg.DeletePendingRequest(id)
}

// expired returns the pending requests older than age.
func (r *requestRegistry) expired(age time.Duration) ([]*storage.PendingRequest, error) {
	all, err := r.stg.ListPendingRequests()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-age).Unix()
	var out []*storage.PendingRequest
	for _, req := range all {
		if req.CreatedAt <= cutoff {
			out = append(out, req)
		}
	}
	return out, nil
}
