package distributor

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

var (
	testOwner = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")
	testAlice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testBob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// testPool wires a protocol over a throwaway database and a local engine.
// Callbacks are delivered synchronously through DeliverPending; the error of
// the last handled callback is retained for assertions.
type testPool struct {
	p   *Protocol
	eng *engine.Local

	lastErr error
}

func newTestPool(t *testing.T, cfg Config) *testPool {
	t.Helper()
	if cfg.Owner == (common.Address{}) {
		cfg.Owner = testOwner
	}
	eng, err := engine.NewLocal(engine.LocalConfig{})
	qt.Assert(t, err, qt.IsNil)
	p, err := New(cfg, storage.New(metadb.NewTest(t)), eng)
	qt.Assert(t, err, qt.IsNil)
	tp := &testPool{p: p, eng: eng}
	eng.SetCallbackHandler(func(cb engine.Callback) {
		tp.lastErr = p.HandleCallback(cb)
	})
	return tp
}

// fund credits the pool with an honestly declared amount and settles the
// verification callback.
func (tp *testPool) fund(t *testing.T, amount int64) {
	t.Helper()
	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(amount))
	qt.Assert(t, err, qt.IsNil)
	_, err = tp.p.Fund(testOwner, raw, proof, big.NewInt(amount))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tp.eng.DeliverPending(), qt.Equals, 1)
	qt.Assert(t, tp.lastErr, qt.IsNil)
}

// commit records a score for addr at the given tier.
func (tp *testPool) commit(t *testing.T, addr common.Address, score int64, tier types.Tier) {
	t.Helper()
	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(score))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tp.p.CommitScore(addr, raw, proof, tier), qt.IsNil)
}

func TestFundAndVerify(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(1_000_000))
	c.Assert(err, qt.IsNil)
	id, err := tp.p.Fund(testOwner, raw, proof, big.NewInt(1_000_000))
	c.Assert(err, qt.IsNil)
	done := tp.p.Subscribe(id)

	// Credit is optimistic: the cleartext balance moves before the
	// verification callback lands.
	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "1000000")
	c.Assert(info.Funded, qt.IsTrue)

	pending, err := tp.p.PendingRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.HasLen, 1)
	c.Assert(pending[0].Purpose, qt.Equals, types.PurposeVerifyFunding)

	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	res := <-done
	c.Assert(res.Err, qt.IsNil)
	c.Assert(res.Amount.String(), qt.Equals, "1000000")
	c.Assert(res.Purpose, qt.Equals, types.PurposeVerifyFunding)

	pending, err = tp.p.PendingRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.HasLen, 0)
}

func TestFundGuards(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(10))
	c.Assert(err, qt.IsNil)
	_, err = tp.p.Fund(testOwner, raw, proof, big.NewInt(0))
	c.Assert(err, qt.ErrorIs, ErrInvalidAmount)
	_, err = tp.p.Fund(testOwner, raw, proof, nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidAmount)

	// A second funding may not be opened while the first verification is
	// still outstanding.
	_, err = tp.p.Fund(testOwner, raw, proof, big.NewInt(10))
	c.Assert(err, qt.IsNil)
	raw2, proof2, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(20))
	c.Assert(err, qt.IsNil)
	_, err = tp.p.Fund(testOwner, raw2, proof2, big.NewInt(20))
	c.Assert(err, qt.ErrorIs, ErrRequestInFlight)

	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)
	_, err = tp.p.Fund(testOwner, raw2, proof2, big.NewInt(20))
	c.Assert(err, qt.IsNil)
}

func TestFundMismatchHaltsPool(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	// Encrypted 900 but declared 1000: the oracle callback must trip the
	// integrity alarm and freeze the pool.
	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(900))
	c.Assert(err, qt.IsNil)
	id, err := tp.p.Fund(testOwner, raw, proof, big.NewInt(1000))
	c.Assert(err, qt.IsNil)
	done := tp.p.Subscribe(id)

	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.ErrorIs, ErrPoolMismatch)

	res := <-done
	c.Assert(res.Err, qt.ErrorIs, ErrPoolMismatch)

	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.Halted, qt.IsTrue)

	_, err = tp.p.Fund(testOwner, raw, proof, big.NewInt(900))
	c.Assert(err, qt.ErrorIs, ErrPoolHalted)
	_, err = tp.p.WithdrawRemainder(testOwner)
	c.Assert(err, qt.ErrorIs, ErrPoolHalted)
}

func TestCommitGuards(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(80))
	c.Assert(err, qt.IsNil)

	// No funding yet.
	err = tp.p.CommitScore(testAlice, raw, proof, types.TierGold)
	c.Assert(err, qt.ErrorIs, ErrPoolUninitialized)

	tp.fund(t, 1_000_000)

	err = tp.p.CommitScore(testAlice, raw, proof, types.TierNone)
	c.Assert(err, qt.ErrorIs, ErrInvalidTier)

	c.Assert(tp.p.CommitScore(testAlice, raw, proof, types.TierGold), qt.IsNil)
	err = tp.p.CommitScore(testAlice, raw, proof, types.TierSilver)
	c.Assert(err, qt.ErrorIs, ErrAlreadyCommitted)

	count, err := tp.p.ParticipantCount()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))
	got, err := tp.p.ParticipantByIndex(0)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, testAlice)
}

func TestBonusLifecycle(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 80, types.TierGold)

	_, err := tp.p.WithdrawBonus(testBob)
	c.Assert(err, qt.ErrorIs, ErrNotCommitted)

	id, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	done := tp.p.Subscribe(id)

	// The flag is raised before settlement, blocking a concurrent retry.
	_, err = tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.ErrorIs, ErrAlreadyWithdrawn)

	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	// floor(floor(80*800/100) * 1_000_000 / 10000) = 64_000
	res := <-done
	c.Assert(res.Err, qt.IsNil)
	c.Assert(res.Amount.String(), qt.Equals, "64000")
	c.Assert(res.Recipient, qt.Equals, testAlice)

	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "936000")

	view, err := tp.p.ParticipantInfo(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(view.HasWithdrawn, qt.IsTrue)
	c.Assert(view.SettledBonus.String(), qt.Equals, "64000")

	// One withdrawal cycle per address: no second withdrawal, no
	// recommitment.
	_, err = tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.ErrorIs, ErrAlreadyWithdrawn)
	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(10))
	c.Assert(err, qt.IsNil)
	err = tp.p.CommitScore(testAlice, raw, proof, types.TierGold)
	c.Assert(err, qt.ErrorIs, ErrAlreadyWithdrawn)

	payouts, err := tp.p.Payouts()
	c.Assert(err, qt.IsNil)
	c.Assert(payouts, qt.HasLen, 1)
	c.Assert(payouts[0].Recipient, qt.Equals, testAlice)
	c.Assert(payouts[0].Amount.String(), qt.Equals, "64000")
	c.Assert(payouts[0].Purpose, qt.Equals, types.PurposeSettleBonus)
}

func TestCallbackReplayIsRejected(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 80, types.TierGold)

	var last engine.Callback
	tp.eng.SetCallbackHandler(func(cb engine.Callback) {
		last = cb
		tp.lastErr = tp.p.HandleCallback(cb)
	})

	_, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	// Redelivering the settled callback must match no pending request and
	// change nothing.
	err = tp.p.HandleCallback(last)
	c.Assert(err, qt.ErrorIs, ErrUnknownRequest)
	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "936000")

	// A tampered value must fail proof verification before resolution.
	tampered := last
	tampered.Values = []*big.Int{big.NewInt(999_999)}
	err = tp.p.HandleCallback(tampered)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
}

func TestInsufficientFundsSettlement(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	// floor(1000*1500/100) = 15000 basis points: one and a half times the
	// pool, so the confirmed bonus exceeds the balance.
	tp.fund(t, 1000)
	tp.commit(t, testAlice, 1000, types.TierPlatinum)

	_, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.ErrorIs, ErrInsufficientFunds)

	// Nothing moved and the request stays open for remediation.
	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "1000")
	pending, err := tp.p.PendingRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.HasLen, 1)
}

func TestZeroBonusAndRemediation(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{RequestTimeout: time.Nanosecond})

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 0, types.TierBronze)

	id, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.ErrorIs, ErrZeroBonus)

	// The participant is stranded behind the raised flag until the owner
	// reopens the withdrawal.
	_, err = tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.ErrorIs, ErrAlreadyWithdrawn)

	err = tp.p.ReopenWithdrawal(testAlice, testAlice)
	c.Assert(err, qt.ErrorIs, ErrNotOwner)
	err = tp.p.ReopenWithdrawal(testOwner, testBob)
	c.Assert(err, qt.ErrorIs, ErrUnknownRequest)
	c.Assert(tp.p.ReopenWithdrawal(testOwner, testAlice), qt.IsNil)

	pending, err := tp.p.PendingRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.HasLen, 0)

	view, err := tp.p.ParticipantInfo(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(view.HasWithdrawn, qt.IsFalse)

	// The reopened participant can try again with a fresh request id.
	id2, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(id2, qt.Not(qt.Equals), id)
}

func TestReopenWithdrawalNotExpired(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{RequestTimeout: time.Hour})

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 0, types.TierBronze)

	_, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.ErrorIs, ErrZeroBonus)

	err = tp.p.ReopenWithdrawal(testOwner, testAlice)
	c.Assert(err, qt.ErrorIs, ErrRequestNotExpired)
}

func TestRemainderWithdrawal(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	// Empty pool fails before any request is opened.
	_, err := tp.p.WithdrawRemainder(testOwner)
	c.Assert(err, qt.ErrorIs, ErrNothingToWithdraw)

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 80, types.TierGold)
	_, err = tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	_, err = tp.p.WithdrawRemainder(testAlice)
	c.Assert(err, qt.ErrorIs, ErrNotOwner)

	id, err := tp.p.WithdrawRemainder(testOwner)
	c.Assert(err, qt.IsNil)
	done := tp.p.Subscribe(id)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	res := <-done
	c.Assert(res.Err, qt.IsNil)
	c.Assert(res.Amount.String(), qt.Equals, "936000")
	c.Assert(res.Recipient, qt.Equals, testOwner)

	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "0")

	_, err = tp.p.WithdrawRemainder(testOwner)
	c.Assert(err, qt.ErrorIs, ErrNothingToWithdraw)
}

func TestCrossPurposeRequestsDoNotInterfere(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 80, types.TierGold)

	// Open a funding verification and a bonus settlement side by side.
	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(500))
	c.Assert(err, qt.IsNil)
	_, err = tp.p.Fund(testOwner, raw, proof, big.NewInt(500))
	c.Assert(err, qt.IsNil)
	_, err = tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)

	pending, err := tp.p.PendingRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.HasLen, 2)

	c.Assert(tp.eng.DeliverPending(), qt.Equals, 2)
	c.Assert(tp.lastErr, qt.IsNil)

	// The second credit was applied before the bonus snapshot, so the
	// payout is computed over the 1_000_500 balance:
	// floor(640 * 1_000_500 / 10000) = 64_032.
	view, err := tp.p.ParticipantInfo(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(view.SettledBonus.String(), qt.Equals, "64032")

	info, err := tp.p.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "936468")
}

func TestRestartKeepsClearBalance(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	stg := storage.New(database)

	eng, err := engine.NewLocal(engine.LocalConfig{})
	c.Assert(err, qt.IsNil)
	p, err := New(Config{Owner: testOwner}, stg, eng)
	c.Assert(err, qt.IsNil)
	eng.SetCallbackHandler(p.CallbackHandler())

	raw, proof, err := engine.EncryptInput(eng.PublicKey(), big.NewInt(7777))
	c.Assert(err, qt.IsNil)
	_, err = p.Fund(testOwner, raw, proof, big.NewInt(7777))
	c.Assert(err, qt.IsNil)
	c.Assert(eng.DeliverPending(), qt.Equals, 1)

	// A new protocol over the same storage re-anchors the encrypted
	// balance on a fresh engine and keeps the cleartext side.
	eng2, err := engine.NewLocal(engine.LocalConfig{})
	c.Assert(err, qt.IsNil)
	p2, err := New(Config{Owner: testOwner}, stg, eng2)
	c.Assert(err, qt.IsNil)

	info, err := p2.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "7777")
	c.Assert(info.Funded, qt.IsTrue)

	_, err = p2.WithdrawRemainder(testOwner)
	c.Assert(err, qt.IsNil)
	var got *big.Int
	eng2.SetCallbackHandler(func(cb engine.Callback) {
		if err := p2.HandleCallback(cb); err == nil {
			got = cb.Values[0]
		}
	})
	c.Assert(eng2.DeliverPending(), qt.Equals, 1)
	c.Assert(got.Int64(), qt.Equals, int64(7777))
}

// settledBonus runs a full fund-commit-withdraw-settle round on a fresh
// pool and returns the bonus paid out for the given score and tier.
func settledBonus(t *testing.T, score int64, tier types.Tier) *big.Int {
	t.Helper()
	tp := newTestPool(t, Config{})
	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, score, tier)
	_, err := tp.p.WithdrawBonus(testAlice)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, tp.eng.DeliverPending(), qt.Equals, 1)
	qt.Assert(t, tp.lastErr, qt.IsNil)
	view, err := tp.p.ParticipantInfo(testAlice)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, view.SettledBonus, qt.IsNotNil)
	return view.SettledBonus.MathBigInt()
}

func TestBonusMonotonicity(t *testing.T) {
	c := qt.New(t)

	// Raising the score at a fixed tier never shrinks the bonus.
	prev := settledBonus(t, 1, types.TierGold)
	for _, score := range []int64{13, 80, 400, 1250} {
		bonus := settledBonus(t, score, types.TierGold)
		c.Assert(bonus.Cmp(prev) >= 0, qt.IsTrue,
			qt.Commentf("score %d paid %s, below %s", score, bonus, prev))
		prev = bonus
	}

	// Climbing the tier ladder at a fixed score never shrinks it either.
	prev = settledBonus(t, 80, types.TierBronze)
	for _, tier := range []types.Tier{types.TierSilver, types.TierGold, types.TierPlatinum} {
		bonus := settledBonus(t, 80, tier)
		c.Assert(bonus.Cmp(prev) >= 0, qt.IsTrue,
			qt.Commentf("tier %s paid %s, below %s", tier, bonus, prev))
		prev = bonus
	}
}

func TestSubscribeAfterSettlement(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t, Config{})

	raw, proof, err := engine.EncryptInput(tp.eng.PublicKey(), big.NewInt(5000))
	c.Assert(err, qt.IsNil)
	id, err := tp.p.Fund(testOwner, raw, proof, big.NewInt(5000))
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	// The request settled before anyone subscribed; the subscription must
	// resolve immediately instead of waiting on a result that already went
	// out.
	select {
	case _, ok := <-tp.p.Subscribe(id):
		c.Assert(ok, qt.IsFalse)
	case <-time.After(5 * time.Second):
		c.Fatal("subscription to a settled request never resolved")
	}
}

func TestTransferPayouts(t *testing.T) {
	c := qt.New(t)
	var gotRecipient common.Address
	var gotAmount *big.Int
	tp := newTestPool(t, Config{
		Transfer: func(recipient common.Address, amount *big.Int) error {
			gotRecipient = recipient
			gotAmount = amount
			return nil
		},
	})
	tp.fund(t, 1_000_000)
	tp.commit(t, testAlice, 80, types.TierGold)

	_, err := tp.p.WithdrawBonus(testAlice)
	c.Assert(err, qt.IsNil)
	c.Assert(tp.eng.DeliverPending(), qt.Equals, 1)
	c.Assert(tp.lastErr, qt.IsNil)

	c.Assert(gotRecipient, qt.Equals, testAlice)
	c.Assert(gotAmount.String(), qt.Equals, "64000")
}
