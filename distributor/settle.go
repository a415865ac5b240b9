package distributor

import (
	"fmt"
	"math/big"
	"time"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// HandleCallback consumes a decryption callback from the engine. The proof
// is verified and the request resolved before anything is mutated; an
// unverifiable or unmatched callback is an integrity signal and changes no
// state. Each callback runs to completion under the protocol lock.
func (p *Protocol) HandleCallback(cb engine.Callback) error {
	return p.handleCallback(types.PurposeUnknown, cb)
}

// HandleCallbackFor consumes a callback through a purpose-bound entry point.
// A callback whose pending request belongs to a different purpose is
// rejected as unknown.
func (p *Protocol) HandleCallbackFor(purpose types.Purpose, cb engine.Callback) error {
	if !purpose.Valid() {
		return ErrUnknownRequest
	}
	return p.handleCallback(purpose, cb)
}

func (p *Protocol) handleCallback(expected types.Purpose, cb engine.Callback) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(cb.Values) != 1 {
		return fmt.Errorf("%w: expected one cleartext, got %d", ErrInvalidProof, len(cb.Values))
	}
	if err := p.eng.VerifyCallback(cb.RequestID, cb.Values, cb.Proof); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	req, err := p.reg.resolve(cb.RequestID)
	if err != nil {
		return err
	}
	if expected != types.PurposeUnknown && req.Purpose != expected {
		return ErrUnknownRequest
	}
	value := cb.Values[0]
	switch req.Purpose {
	case types.PurposeVerifyFunding:
		return p.settleFunding(req, value)
	case types.PurposeSettleBonus:
		return p.settleBonus(req, value)
	case types.PurposeSettleRemainder:
		return p.settleRemainder(req, value)
	}
	return ErrUnknownRequest
}

// settleFunding reconciles the declared funding amount with the oracle
// confirmed one. A mismatch cannot roll back the optimistic encrypted
// credit, so it halts the pool as a fatal integrity alarm.
func (p *Protocol) settleFunding(req *storage.PendingRequest, value *big.Int) error {
	declared := req.DeclaredAmount.MathBigInt()
	if declared.Cmp(value) != 0 {
		if err := p.reg.close(req.ID); err != nil {
			return err
		}
		if err := p.account.halt(); err != nil {
			return err
		}
		log.Errorf("pool integrity alarm: declared funding %s, oracle confirmed %s (request %s); pool halted",
			declared.String(), value.String(), req.ID.String())
		p.notify(SettlementResult{
			RequestID: req.ID,
			Purpose:   req.Purpose,
			Recipient: req.Originator,
			Err:       ErrPoolMismatch,
		})
		return ErrPoolMismatch
	}
	if err := p.reg.close(req.ID); err != nil {
		return err
	}
	log.Infow("funding verified", "funder", req.Originator.Hex(),
		"amount", value.String(), "requestId", req.ID.String())
	p.notify(SettlementResult{
		RequestID: req.ID,
		Purpose:   req.Purpose,
		Recipient: req.Originator,
		Amount:    (*types.BigInt)(value),
	})
	return nil
}

// settleBonus pays a confirmed bonus to its participant. The request is
// closed before the transfer so a reentrant delivery attempt cannot settle
// the same request twice; the guard checks leave all state untouched on
// failure, keeping the pending request open for remediation.
func (p *Protocol) settleBonus(req *storage.PendingRequest, value *big.Int) error {
	if value.Sign() <= 0 {
		return ErrZeroBonus
	}
	ps, err := p.account.load()
	if err != nil {
		return err
	}
	if ps.ClearBalance.MathBigInt().Cmp(value) < 0 {
		return ErrInsufficientFunds
	}
	if err := p.reg.close(req.ID); err != nil {
		return err
	}
	if err := p.account.debit(value); err != nil {
		return err
	}
	if err := p.ledger.settle(req.Originator, (*types.BigInt)(value)); err != nil {
		return err
	}
	if err := p.payout(req, value); err != nil {
		return err
	}
	log.Infow("bonus paid", "participant", req.Originator.Hex(),
		"amount", value.String(), "requestId", req.ID.String())
	p.notify(SettlementResult{
		RequestID: req.ID,
		Purpose:   req.Purpose,
		Recipient: req.Originator,
		Amount:    (*types.BigInt)(value),
	})
	return nil
}

// settleRemainder pays the full remaining balance to the owner and zeroes
// the pool. A confirmed value above the cleartext balance means the two
// sides diverged, which halts the pool like a funding mismatch.
func (p *Protocol) settleRemainder(req *storage.PendingRequest, value *big.Int) error {
	ps, err := p.account.load()
	if err != nil {
		return err
	}
	if ps.ClearBalance.MathBigInt().Cmp(value) < 0 {
		if err := p.reg.close(req.ID); err != nil {
			return err
		}
		if err := p.account.halt(); err != nil {
			return err
		}
		log.Errorf("pool integrity alarm: remainder %s exceeds cleartext balance %s (request %s); pool halted",
			value.String(), ps.ClearBalance.String(), req.ID.String())
		p.notify(SettlementResult{
			RequestID: req.ID,
			Purpose:   req.Purpose,
			Recipient: req.Originator,
			Err:       ErrPoolMismatch,
		})
		return ErrPoolMismatch
	}
	if value.Sign() <= 0 {
		return ErrNothingToWithdraw
	}
	if err := p.reg.close(req.ID); err != nil {
		return err
	}
	if err := p.account.reset(); err != nil {
		return err
	}
	if err := p.payout(req, value); err != nil {
		return err
	}
	log.Infow("remainder paid", "owner", req.Originator.Hex(),
		"amount", value.String(), "requestId", req.ID.String())
	p.notify(SettlementResult{
		RequestID: req.ID,
		Purpose:   req.Purpose,
		Recipient: req.Originator,
		Amount:    (*types.BigInt)(value),
	})
	return nil
}

// payout executes the configured transfer and records the journal entry.
func (p *Protocol) payout(req *storage.PendingRequest, amount *big.Int) error {
	if p.cfg.Transfer != nil {
		if err := p.cfg.Transfer(req.Originator, new(big.Int).Set(amount)); err != nil {
			return fmt.Errorf("transfer payout: %w", err)
		}
	}
	return p.stg.AppendPayout(&types.Payout{
		Recipient: req.Originator,
		Amount:    (*types.BigInt)(amount),
		RequestID: req.ID,
		Purpose:   req.Purpose,
		Timestamp: time.Now().Unix(),
	})
}
