package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/types"
)

var testOwner = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")

func TestPoolService(t *testing.T) {
	c := qt.New(t)

	pool, err := NewPool(PoolConfig{
		DataDir: t.TempDir(),
		Owner:   testOwner,
	})
	c.Assert(err, qt.IsNil)
	defer pool.Stop()

	// Queue a funding before the dispatcher runs, so the subscription is
	// in place when the callback is delivered.
	raw, proof, err := engine.EncryptInput(pool.Engine.PublicKey(), big.NewInt(5000))
	c.Assert(err, qt.IsNil)
	id, err := pool.Protocol.Fund(testOwner, raw, proof, big.NewInt(5000))
	c.Assert(err, qt.IsNil)
	done := pool.Protocol.Subscribe(id)

	ctx := context.Background()
	c.Assert(pool.Start(ctx), qt.IsNil)
	err = pool.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	select {
	case res := <-done:
		c.Assert(res.Err, qt.IsNil)
		c.Assert(res.Amount.String(), qt.Equals, "5000")
		c.Assert(res.Purpose, qt.Equals, types.PurposeVerifyFunding)
	case <-time.After(10 * time.Second):
		c.Fatal("funding verification callback never delivered")
	}

	info, err := pool.Protocol.PoolInfo()
	c.Assert(err, qt.IsNil)
	c.Assert(info.ClearBalance.String(), qt.Equals, "5000")
	c.Assert(info.Funded, qt.IsTrue)
}
