package distributor

import (
	"fmt"
	"math/big"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// poolAccount maintains the paired encrypted and cleartext balances of the
// pool. All mutations go through the protocol lock; the account itself only
// enforces arithmetic preconditions.
type poolAccount struct {
	stg *storage.Storage
	eng engine.Engine
}

// load returns the persisted pool state. The state is created by the
// protocol constructor, so absence here is an internal invariant violation.
func (a *poolAccount) load() (*storage.PoolState, error) {
	ps, err := a.stg.Pool()
	if err != nil {
		return nil, fmt.Errorf("load pool state: %w", err)
	}
	return ps, nil
}

// credit adds the encrypted amount to the encrypted balance and the declared
// cleartext amount to the running total. Homomorphic addition never fails on
// valid handles; a mismatch between the two sides is caught later by the
// funding verification callback.
func (a *poolAccount) credit(amount engine.Handle, declared *big.Int) (*storage.PoolState, error) {
	ps, err := a.load()
	if err != nil {
		return nil, err
	}
	sum, err := a.eng.Add(engine.Handle(ps.BalanceHandle), amount)
	if err != nil {
		return nil, fmt.Errorf("homomorphic credit: %w", err)
	}
	ps.BalanceHandle = uint64(sum)
	ps.ClearBalance = (*types.BigInt)(new(big.Int).Add(ps.ClearBalance.MathBigInt(), declared))
	ps.Funded = true
	if err := a.stg.SetPool(ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// debit lowers both balances by an oracle-confirmed amount. Fails with
// ErrInsufficientFunds when the cleartext balance cannot cover it; nothing
// is mutated in that case.
func (a *poolAccount) debit(amount *big.Int) error {
	ps, err := a.load()
	if err != nil {
		return err
	}
	clear := ps.ClearBalance.MathBigInt()
	if clear.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	sub, err := a.eng.Encrypt(amount)
	if err != nil {
		return fmt.Errorf("encrypt debit amount: %w", err)
	}
	diff, err := a.eng.Sub(engine.Handle(ps.BalanceHandle), sub)
	if err != nil {
		return fmt.Errorf("homomorphic debit: %w", err)
	}
	ps.BalanceHandle = uint64(diff)
	ps.ClearBalance = (*types.BigInt)(new(big.Int).Sub(clear, amount))
	return a.stg.SetPool(ps)
}

// reset zeroes both balances. Used only by remainder settlement.
func (a *poolAccount) reset() error {
	ps, err := a.load()
	if err != nil {
		return err
	}
	zero, err := a.eng.Encrypt(big.NewInt(0))
	if err != nil {
		return fmt.Errorf("encrypt zero balance: %w", err)
	}
	ps.BalanceHandle = uint64(zero)
	ps.ClearBalance = (*types.BigInt)(big.NewInt(0))
	return a.stg.SetPool(ps)
}

// halt flags the pool after an integrity alarm. Fund-moving operations
// refuse to run on a halted pool.
func (a *poolAccount) halt() error {
	ps, err := a.load()
	if err != nil {
		return err
	}
	ps.Halted = true
	return a.stg.SetPool(ps)
}
