package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherpool/cipherpool/distributor"
	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/storage"
)

// PoolConfig carries the deployment parameters of a pool service.
type PoolConfig struct {
	// DataDir is the directory holding the pool database.
	DataDir string
	// Owner is the pool owner address.
	Owner common.Address
	// OracleKeyHex optionally pins the oracle signing key. A fresh key is
	// generated when empty.
	OracleKeyHex string
	// RequestTimeout is the remediation age for pending requests.
	RequestTimeout time.Duration
	// Transfer is the payout rail, nil for journal-only payouts.
	Transfer distributor.TransferFunc
}

// PoolService bundles the persistent storage, the local encryption engine
// and the distribution protocol of one pool, with a Start/Stop lifecycle
// around the engine's callback dispatcher.
type PoolService struct {
	Storage  *storage.Storage
	Engine   *engine.Local
	Protocol *distributor.Protocol

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPool opens the pool database under cfg.DataDir and wires the engine
// and the protocol together. The engine request id counter resumes from the
// persisted high-water mark so ids are never reused across restarts.
func NewPool(cfg PoolConfig) (*PoolService, error) {
	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "cipherpool"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	stg := storage.New(database)
	eng, err := engine.NewLocal(engine.LocalConfig{
		OracleKeyHex:   cfg.OracleKeyHex,
		FirstRequestID: stg.RequestIDMark(),
	})
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	protocol, err := distributor.New(distributor.Config{
		Owner:          cfg.Owner,
		RequestTimeout: cfg.RequestTimeout,
		Transfer:       cfg.Transfer,
	}, stg, eng)
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("failed to create protocol: %w", err)
	}
	eng.SetCallbackHandler(protocol.CallbackHandler())
	return &PoolService{
		Storage:  stg,
		Engine:   eng,
		Protocol: protocol,
	}, nil
}

// Start launches the engine callback dispatcher. It returns an error if the
// service is already running.
func (ps *PoolService) Start(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	ps.cancel = cancel

	if err := ps.Engine.Start(ctx); err != nil {
		ps.cancel = nil
		cancel()
		return fmt.Errorf("failed to start engine: %w", err)
	}
	return nil
}

// Stop halts the dispatcher and closes the storage.
func (ps *PoolService) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cancel != nil {
		ps.cancel()
		ps.cancel = nil
	}
	ps.Engine.Stop()
	ps.Storage.Close()
}
