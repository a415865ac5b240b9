package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// info returns the encryption public key, the pool owner and the tier table
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	x, y := a.engine.PublicKey().Point()
	tiers := map[string]uint64{}
	for tier, bps := range a.protocol.TierBasisPoints() {
		tiers[tier.String()] = bps
	}
	httpWriteJSON(w, &Info{
		EncryptionPubKey: [2]types.BigInt{types.BigInt(*x), types.BigInt(*y)},
		Owner:            a.protocol.Owner(),
		TierBasisPoints:  tiers,
	})
}

// pool returns the pool account state
// GET /pool
func (a *API) pool(w http.ResponseWriter, r *http.Request) {
	info, err := a.protocol.PoolInfo()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	httpWriteJSON(w, info)
}

// fund submits an encrypted funding with its declared cleartext amount
// POST /pool/fundings
func (a *API) fund(w http.ResponseWriter, r *http.Request) {
	f := &Funding{}
	if err := json.NewDecoder(r.Body).Decode(f); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if f.Declared == nil {
		ErrInvalidAmount.With("missing declared amount").Write(w)
		return
	}

	// Extract the funder address from the signature
	funder, err := ethereum.AddrFromSignature(f.FundingMessage(), f.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}

	id, err := a.protocol.Fund(funder, f.Ciphertext, f.Proof, f.Declared.MathBigInt())
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	log.Infow("funding submitted", "funder", funder.Hex(),
		"declared", f.Declared.String(), "requestId", id.String())
	httpWriteJSON(w, &RequestResponse{RequestID: id})
}

// commit records an encrypted score commitment
// POST /pool/commitments
func (a *API) commit(w http.ResponseWriter, r *http.Request) {
	cm := &Commitment{}
	if err := json.NewDecoder(r.Body).Decode(cm); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	tier, err := types.TierFromString(cm.Tier)
	if err != nil {
		ErrInvalidTier.WithErr(err).Write(w)
		return
	}
	addr, err := ethereum.AddrFromSignature(cm.CommitmentMessage(), cm.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.protocol.CommitScore(addr, cm.Ciphertext, cm.Proof, tier); err != nil {
		writeProtocolError(w, err)
		return
	}
	log.Infow("commitment submitted", "participant", addr.Hex(), "tier", cm.Tier)
	httpWriteOK(w)
}

// withdraw opens a bonus settlement for the signing participant
// POST /pool/withdrawals
func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	wd := &Withdrawal{}
	if err := json.NewDecoder(r.Body).Decode(wd); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	addr, err := ethereum.AddrFromSignature(WithdrawalMessage(), wd.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	id, err := a.protocol.WithdrawBonus(addr)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	httpWriteJSON(w, &RequestResponse{RequestID: id})
}

// remainder opens a remainder settlement for the pool owner
// POST /pool/remainder
func (a *API) remainder(w http.ResponseWriter, r *http.Request) {
	wd := &Withdrawal{}
	if err := json.NewDecoder(r.Body).Decode(wd); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	addr, err := ethereum.AddrFromSignature(RemainderMessage(), wd.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	id, err := a.protocol.WithdrawRemainder(addr)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	httpWriteJSON(w, &RequestResponse{RequestID: id})
}

// reopen clears the withdrawal flag of a participant with an expired
// pending settlement
// POST /pool/withdrawals/reopen
func (a *API) reopen(w http.ResponseWriter, r *http.Request) {
	req := &Reopen{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	addr, err := ethereum.AddrFromSignature(req.ReopenMessage(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.protocol.ReopenWithdrawal(addr, req.Participant); err != nil {
		writeProtocolError(w, err)
		return
	}
	httpWriteOK(w)
}

// participants enumerates committed participants in insertion order
// GET /pool/participants
func (a *API) participants(w http.ResponseWriter, r *http.Request) {
	count, err := a.protocol.ParticipantCount()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	list := &ParticipantList{Participants: []common.Address{}}
	for i := uint64(0); i < count; i++ {
		addr, err := a.protocol.ParticipantByIndex(i)
		if err != nil {
			writeProtocolError(w, err)
			return
		}
		list.Participants = append(list.Participants, addr)
	}
	httpWriteJSON(w, list)
}

// participant returns the ledger view of one address
// GET /pool/participants/{address}
func (a *API) participant(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, ParticipantURLParam)
	if !common.IsHexAddress(raw) {
		ErrMalformedAddress.With(raw).Write(w)
		return
	}
	view, err := a.protocol.ParticipantInfo(common.HexToAddress(raw))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	if !view.HasCommitted {
		ErrParticipantNotFound.With(raw).Write(w)
		return
	}
	httpWriteJSON(w, view)
}

// requests lists the in-flight decryption requests
// GET /pool/requests
func (a *API) requests(w http.ResponseWriter, r *http.Request) {
	pending, err := a.protocol.PendingRequests()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	views := []*PendingRequestView{}
	for _, req := range pending {
		views = append(views, &PendingRequestView{
			ID:         req.ID,
			Purpose:    req.Purpose.String(),
			Originator: req.Originator,
			CreatedAt:  req.CreatedAt,
		})
	}
	httpWriteJSON(w, views)
}

// payouts returns the settled-payout journal
// GET /pool/payouts
func (a *API) payouts(w http.ResponseWriter, r *http.Request) {
	journal, err := a.protocol.Payouts()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	if journal == nil {
		journal = []*types.Payout{}
	}
	httpWriteJSON(w, journal)
}
