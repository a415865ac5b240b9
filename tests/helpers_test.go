package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/cipherpool/cipherpool/api/client"
	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/service"
	"github.com/cipherpool/cipherpool/util"
)

// NewTestSigner creates and initializes a new ethereum signer for testing.
func NewTestSigner(t *testing.T) *ethereum.SignKeys {
	t.Helper()
	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)
	return signer
}

// NewTestService starts a full pool stack on a random port: storage, engine
// with its dispatcher, protocol and the HTTP API. It returns the owner
// signer and a connected client.
func NewTestService(t *testing.T, ctx context.Context) (*service.PoolService, *ethereum.SignKeys, *client.HTTPclient) {
	t.Helper()
	c := qt.New(t)

	owner := NewTestSigner(t)
	pool, err := service.NewPool(service.PoolConfig{
		DataDir:        t.TempDir(),
		Owner:          owner.Address(),
		RequestTimeout: time.Minute,
	})
	c.Assert(err, qt.IsNil)
	t.Cleanup(pool.Stop)
	c.Assert(pool.Start(ctx), qt.IsNil)

	tmpPort := util.RandomInt(40000, 60000)
	apiSrv := service.NewAPI(pool.Protocol, pool.Engine, "127.0.0.1", tmpPort)
	c.Assert(apiSrv.Start(ctx), qt.IsNil)
	t.Cleanup(apiSrv.Stop)

	// Wait for the HTTP server to start
	time.Sleep(500 * time.Millisecond)

	host, port := apiSrv.HostPort()
	cli, err := client.New(fmt.Sprintf("http://%s:%d", host, port))
	c.Assert(err, qt.IsNil)
	return pool, owner, cli
}

// waitFor polls cond until it holds or the timeout elapses. Used to observe
// asynchronous settlement through the HTTP API.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
