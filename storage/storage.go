// Package storage persists the protocol state: participants with their
// insertion-order index, the pool account, pending decryption requests, the
// settled-payout journal and the engine request-id high-water mark. It is a
// prefixed key-value layout over a dvote database, with CBOR-encoded
// artifacts. The following prefixes are used:
//   - 'pt/' for participants (keyed by address)
//   - 'pi/' for the participant insertion-order index
//   - 'po/' for the pool account
//   - 'rq/' for pending decryption requests (keyed by request id)
//   - 'ps/' for the open-request slot per purpose
//   - 'py/' for the settled-payout journal
//   - 'm/'  for metadata (request-id high-water mark)
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	participantPrefix    = []byte("pt/")
	participantIdxPrefix = []byte("pi/")
	poolPrefix           = []byte("po/")
	requestPrefix        = []byte("rq/")
	purposeSlotPrefix    = []byte("ps/")
	payoutPrefix         = []byte("py/")
	metaPrefix           = []byte("m/")
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
)

// Storage wraps the database with the accessors the protocol needs.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance over the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		panic(err)
	}
}

// setArtifact stores a CBOR-encoded artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact loads the artifact stored under prefix/key into out. Returns
// ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	return decodeArtifact(data, out)
}

// deleteArtifact removes the artifact stored under prefix/key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return wTx.Commit()
}

func u64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}
