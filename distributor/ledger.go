package distributor

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// participantLedger holds one entry per address with a single commit
// lifecycle: commit once, withdraw at most once, never commit again after a
// withdrawal.
type participantLedger struct {
	stg *storage.Storage
}

// get loads a participant entry, or nil when the address has never
// committed.
func (l *participantLedger) get(addr common.Address) (*storage.Participant, error) {
	p, err := l.stg.Participant(addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load participant %s: %w", addr.Hex(), err)
	}
	return p, nil
}

// commit records a new participant with its encrypted score handle and
// appends the address to the enumeration order.
func (l *participantLedger) commit(addr common.Address, score engine.Handle, tier types.Tier) error {
	existing, err := l.get(addr)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.HasWithdrawn {
			return ErrAlreadyWithdrawn
		}
		return ErrAlreadyCommitted
	}
	if err := l.stg.SetParticipant(&storage.Participant{
		Address:      addr,
		ScoreHandle:  uint64(score),
		Tier:         tier,
		HasCommitted: true,
	}); err != nil {
		return err
	}
	_, err = l.stg.AppendParticipantIndex(addr)
	return err
}

// markWithdrawing sets the withdrawal flag before the settlement callback
// confirms the amount. The flag blocks double withdrawal; a lost callback is
// recovered through the owner remediation path, which clears it again.
func (l *participantLedger) markWithdrawing(addr common.Address) error {
	p, err := l.get(addr)
	if err != nil {
		return err
	}
	if p == nil || !p.HasCommitted {
		return ErrNotCommitted
	}
	if p.HasWithdrawn {
		return ErrAlreadyWithdrawn
	}
	p.HasWithdrawn = true
	return l.stg.SetParticipant(p)
}

// settle records the oracle-confirmed bonus on a withdrawing participant.
func (l *participantLedger) settle(addr common.Address, bonus *types.BigInt) error {
	p, err := l.get(addr)
	if err != nil {
		return err
	}
	if p == nil || !p.HasWithdrawn {
		return fmt.Errorf("settle on non-withdrawing participant %s", addr.Hex())
	}
	p.SettledBonus = bonus
	return l.stg.SetParticipant(p)
}

// reopen clears the withdrawal flag of a participant whose settlement never
// arrived. Only valid while no bonus has been settled.
func (l *participantLedger) reopen(addr common.Address) error {
	p, err := l.get(addr)
	if err != nil {
		return err
	}
	if p == nil || !p.HasWithdrawn {
		return ErrNotCommitted
	}
	if p.SettledBonus != nil {
		return ErrAlreadyWithdrawn
	}
	p.HasWithdrawn = false
	return l.stg.SetParticipant(p)
}
