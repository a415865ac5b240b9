// Package distributor implements the confidential bonus-pool state machine:
// funding with declared-versus-encrypted verification, score commitments,
// bonus settlement and remainder withdrawal, all driven by asynchronous
// decryption callbacks from the encryption engine.
package distributor

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// Protocol is the top-level orchestrator of one distribution pool. Every
// mutating entry point and every callback runs to completion under a single
// lock, so transitions never interleave.
type Protocol struct {
	cfg     Config
	stg     *storage.Storage
	eng     engine.Engine
	reg     *requestRegistry
	ledger  *participantLedger
	account *poolAccount

	lock     sync.Mutex
	subs     map[types.RequestID]chan SettlementResult
	subsLock sync.Mutex
}

// New builds a protocol instance over the given storage and engine. The pool
// account is created on first use; on restart the encrypted balance is
// re-anchored from the persisted cleartext balance, since engine handles are
// scoped to the engine instance that issued them.
func New(cfg Config, stg *storage.Storage, eng engine.Engine) (*Protocol, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	p := &Protocol{
		cfg:     cfg,
		stg:     stg,
		eng:     eng,
		reg:     &requestRegistry{stg: stg},
		ledger:  &participantLedger{stg: stg},
		account: &poolAccount{stg: stg, eng: eng},
		subs:    make(map[types.RequestID]chan SettlementResult),
	}
	ps, err := stg.Pool()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		ps = &storage.PoolState{ClearBalance: (*types.BigInt)(big.NewInt(0))}
	case err != nil:
		return nil, fmt.Errorf("load pool state: %w", err)
	}
	h, err := eng.Encrypt(ps.ClearBalance.MathBigInt())
	if err != nil {
		return nil, fmt.Errorf("anchor pool balance: %w", err)
	}
	ps.BalanceHandle = uint64(h)
	if err := stg.SetPool(ps); err != nil {
		return nil, fmt.Errorf("store pool state: %w", err)
	}
	log.Infow("distribution pool ready", "owner", cfg.Owner.Hex(),
		"clearBalance", ps.ClearBalance.String(), "funded", ps.Funded, "halted", ps.Halted)
	return p, nil
}

// CallbackHandler adapts HandleCallback to the engine callback signature,
// logging rejected callbacks instead of returning them.
func (p *Protocol) CallbackHandler() engine.CallbackFunc {
	return func(cb engine.Callback) {
		if err := p.HandleCallback(cb); err != nil {
			log.Warnw("decryption callback rejected",
				"requestId", cb.RequestID.String(), "error", err.Error())
		}
	}
}

// Fund credits the pool with an encrypted amount and its declared cleartext
// counterpart, then opens a verification decryption request for the amount.
// The encrypted credit is applied optimistically; the callback asserts that
// the declared amount matches the oracle-confirmed one.
func (p *Protocol) Fund(funder common.Address, raw, proof []byte, declared *big.Int) (types.RequestID, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if declared == nil || declared.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	ps, err := p.account.load()
	if err != nil {
		return 0, err
	}
	if ps.Halted {
		return 0, ErrPoolHalted
	}
	if p.reg.inFlight(types.PurposeVerifyFunding) {
		return 0, ErrRequestInFlight
	}
	amount, err := p.eng.SubmitCiphertext(raw, proof, p.cfg.MaxFunding)
	if err != nil {
		return 0, fmt.Errorf("submit funding ciphertext: %w", err)
	}
	if _, err := p.account.credit(amount, declared); err != nil {
		return 0, err
	}
	id, err := p.eng.RequestDecryption([]engine.Handle{amount})
	if err != nil {
		return 0, fmt.Errorf("request funding verification: %w", err)
	}
	if err := p.reg.open(id, types.PurposeVerifyFunding, funder,
		(*types.BigInt)(declared)); err != nil {
		return 0, err
	}
	if err := p.stg.SetRequestIDMark(id + 1); err != nil {
		return 0, err
	}
	log.Infow("funding accepted", "funder", funder.Hex(),
		"declared", declared.String(), "requestId", id.String())
	return id, nil
}

// CommitScore records a participant's encrypted performance score and tier.
// The pool must have been funded at least once.
func (p *Protocol) CommitScore(addr common.Address, raw, proof []byte, tier types.Tier) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !tier.Valid() {
		return ErrInvalidTier
	}
	if _, ok := p.cfg.basisPoints(tier); !ok {
		return ErrInvalidTier
	}
	ps, err := p.account.load()
	if err != nil {
		return err
	}
	if !ps.Funded {
		return ErrPoolUninitialized
	}
	score, err := p.eng.SubmitCiphertext(raw, proof, p.cfg.MaxScore)
	if err != nil {
		return fmt.Errorf("submit score ciphertext: %w", err)
	}
	if err := p.ledger.commit(addr, score, tier); err != nil {
		return err
	}
	log.Infow("commitment accepted", "participant", addr.Hex(), "tier", tier.String())
	return nil
}

// WithdrawBonus computes the participant's encrypted bonus and opens a
// settlement decryption request for it. The withdrawal flag is set before
// the callback confirms the amount, so a second call cannot race a pending
// settlement; a lost callback is recovered via ReopenWithdrawal.
//
// The bonus is floor(floor(score*tierBps/100) * poolBalance / 10000),
// evaluated homomorphically in exactly that division order.
func (p *Protocol) WithdrawBonus(addr common.Address) (types.RequestID, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	ps, err := p.account.load()
	if err != nil {
		return 0, err
	}
	if ps.Halted {
		return 0, ErrPoolHalted
	}
	part, err := p.ledger.get(addr)
	if err != nil {
		return 0, err
	}
	if part == nil || !part.HasCommitted {
		return 0, ErrNotCommitted
	}
	if part.HasWithdrawn {
		return 0, ErrAlreadyWithdrawn
	}
	if p.reg.inFlight(types.PurposeSettleBonus) {
		return 0, ErrRequestInFlight
	}
	bps, ok := p.cfg.basisPoints(part.Tier)
	if !ok {
		return 0, ErrInvalidTier
	}
	bonus, err := p.bonusHandle(engine.Handle(part.ScoreHandle), bps,
		engine.Handle(ps.BalanceHandle))
	if err != nil {
		return 0, err
	}
	if err := p.ledger.markWithdrawing(addr); err != nil {
		return 0, err
	}
	id, err := p.eng.RequestDecryption([]engine.Handle{bonus})
	if err != nil {
		return 0, fmt.Errorf("request bonus settlement: %w", err)
	}
	if err := p.reg.open(id, types.PurposeSettleBonus, addr, nil); err != nil {
		return 0, err
	}
	if err := p.stg.SetRequestIDMark(id + 1); err != nil {
		return 0, err
	}
	log.Infow("bonus computed", "participant", addr.Hex(), "requestId", id.String())
	return id, nil
}

// bonusHandle evaluates the staged bonus formula on encrypted handles. The
// two floor divisions are never combined into one, matching the payout
// rounding of the accounting rules.
func (p *Protocol) bonusHandle(score engine.Handle, bps uint64, balance engine.Handle) (engine.Handle, error) {
	weighted, err := p.eng.MulScalar(score, new(big.Int).SetUint64(bps))
	if err != nil {
		return 0, fmt.Errorf("weight score: %w", err)
	}
	share, err := p.eng.DivScalar(weighted, big.NewInt(types.ScoreDenominator))
	if err != nil {
		return 0, fmt.Errorf("normalize share: %w", err)
	}
	scaled, err := p.eng.Mul(share, balance)
	if err != nil {
		return 0, fmt.Errorf("apply pool balance: %w", err)
	}
	bonus, err := p.eng.DivScalar(scaled, big.NewInt(types.BasisPointDenominator))
	if err != nil {
		return 0, fmt.Errorf("resolve basis points: %w", err)
	}
	return bonus, nil
}

// WithdrawRemainder opens a settlement request for the full remaining pool
// balance, payable to the owner. Owner-only.
func (p *Protocol) WithdrawRemainder(caller common.Address) (types.RequestID, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if caller != p.cfg.Owner {
		return 0, ErrNotOwner
	}
	ps, err := p.account.load()
	if err != nil {
		return 0, err
	}
	if ps.Halted {
		return 0, ErrPoolHalted
	}
	if ps.ClearBalance.MathBigInt().Sign() <= 0 {
		return 0, ErrNothingToWithdraw
	}
	if p.reg.inFlight(types.PurposeSettleRemainder) {
		return 0, ErrRequestInFlight
	}
	id, err := p.eng.RequestDecryption([]engine.Handle{engine.Handle(ps.BalanceHandle)})
	if err != nil {
		return 0, fmt.Errorf("request remainder settlement: %w", err)
	}
	if err := p.reg.open(id, types.PurposeSettleRemainder, caller, nil); err != nil {
		return 0, err
	}
	if err := p.stg.SetRequestIDMark(id + 1); err != nil {
		return 0, err
	}
	log.Infow("remainder withdrawal requested", "owner", caller.Hex(), "requestId", id.String())
	return id, nil
}

// ReopenWithdrawal is the owner remediation path for a bonus withdrawal
// whose settlement callback never arrived. It closes the expired pending
// request and clears the participant's withdrawal flag so they can withdraw
// again. Fails with ErrRequestNotExpired while the request is younger than
// the configured timeout.
func (p *Protocol) ReopenWithdrawal(caller, participant common.Address) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if caller != p.cfg.Owner {
		return ErrNotOwner
	}
	id, busy := p.stg.OpenRequestByPurpose(types.PurposeSettleBonus)
	if !busy {
		return ErrUnknownRequest
	}
	req, err := p.reg.resolve(id)
	if err != nil {
		return err
	}
	if req.Originator != participant {
		return ErrUnknownRequest
	}
	expired, err := p.reg.expired(p.cfg.RequestTimeout)
	if err != nil {
		return err
	}
	isExpired := false
	for _, e := range expired {
		if e.ID == id {
			isExpired = true
			break
		}
	}
	if !isExpired {
		return ErrRequestNotExpired
	}
	if err := p.reg.close(id); err != nil {
		return err
	}
	if err := p.ledger.reopen(participant); err != nil {
		return err
	}
	p.dropSubscription(id)
	log.Warnw("stranded withdrawal reopened", "participant", participant.Hex(),
		"requestId", id.String())
	return nil
}

// Owner returns the pool owner address.
func (p *Protocol) Owner() common.Address {
	return p.cfg.Owner
}

// TierBasisPoints returns the multiplier table in effect.
func (p *Protocol) TierBasisPoints() map[types.Tier]uint64 {
	out := make(map[types.Tier]uint64, len(p.cfg.TierBasisPoints))
	for t, bps := range p.cfg.TierBasisPoints {
		out[t] = bps
	}
	return out
}

// PoolInfo returns the externally observable pool state.
func (p *Protocol) PoolInfo() (*types.PoolView, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	ps, err := p.account.load()
	if err != nil {
		return nil, err
	}
	count, err := p.stg.ParticipantCount()
	if err != nil {
		return nil, err
	}
	return &types.PoolView{
		Owner:        p.cfg.Owner,
		ClearBalance: ps.ClearBalance,
		Funded:       ps.Funded,
		Halted:       ps.Halted,
		Participants: int(count),
	}, nil
}

// ParticipantInfo returns the ledger view of an address. Unknown addresses
// yield a zero view with the address filled in.
func (p *Protocol) ParticipantInfo(addr common.Address) (*types.ParticipantView, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	part, err := p.ledger.get(addr)
	if err != nil {
		return nil, err
	}
	view := &types.ParticipantView{Address: addr}
	if part != nil {
		view.Tier = part.Tier
		view.HasCommitted = part.HasCommitted
		view.HasWithdrawn = part.HasWithdrawn
		view.SettledBonus = part.SettledBonus
	}
	return view, nil
}

// ParticipantCount returns the number of committed participants.
func (p *Protocol) ParticipantCount() (uint64, error) {
	return p.stg.ParticipantCount()
}

// ParticipantByIndex returns the address at the given insertion-order index.
func (p *Protocol) ParticipantByIndex(i uint64) (common.Address, error) {
	return p.stg.ParticipantByIndex(i)
}

// PendingRequests returns the currently open decryption requests.
func (p *Protocol) PendingRequests() ([]*storage.PendingRequest, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.stg.ListPendingRequests()
}

// ExpiredRequests returns the open requests older than the configured
// timeout, candidates for remediation.
func (p *Protocol) ExpiredRequests() ([]*storage.PendingRequest, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.reg.expired(p.cfg.RequestTimeout)
}

// Payouts returns the settled-payout journal.
func (p *Protocol) Payouts() ([]*types.Payout, error) {
	return p.stg.Payouts()
}
