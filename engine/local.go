package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/cipherpool/cipherpool/crypto/ecc"
	"github.com/cipherpool/cipherpool/crypto/ecc/curves"
	"github.com/cipherpool/cipherpool/crypto/elgamal"
	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// entry is the engine-side record behind a handle: the plaintext shadow it
// operates on plus the ciphertext form kept for auditability.
type entry struct {
	value      *big.Int
	ciphertext *elgamal.Ciphertext
}

// job is a queued decryption request.
type job struct {
	id     types.RequestID
	values []*big.Int
}

// LocalConfig configures a Local engine instance.
type LocalConfig struct {
	// OracleKeyHex is the hex private key the oracle signs callbacks with.
	// If empty, a fresh key is generated.
	OracleKeyHex string
	// FirstRequestID is the id assigned to the next decryption request.
	// Persisting a high-water mark across restarts prevents id reuse.
	FirstRequestID types.RequestID
}

// Local is an in-process trusted decryption oracle implementing Engine. It
// keeps the handle table in memory, performs arithmetic on plaintext
// shadows, and delivers decryption callbacks asynchronously from a
// dispatcher goroutine, each authenticated with an ECDSA signature.
type Local struct {
	ctx    context.Context
	cancel context.CancelFunc

	publicKey  ecc.Point
	privateKey *big.Int
	oracle     *ethereum.SignKeys

	lock    sync.RWMutex
	entries map[Handle]*entry
	nextH   Handle
	nextID  types.RequestID

	queue   []job
	pending sync.Cond

	handler     CallbackFunc
	handlerLock sync.RWMutex
}

// NewLocal creates a Local engine with a fresh ElGamal key pair on the
// BabyJubJub curve.
func NewLocal(cfg LocalConfig) (*Local, error) {
	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, privateKey, err := elgamal.GenerateKey(curve)
	if err != nil {
		return nil, fmt.Errorf("cannot generate engine key pair: %w", err)
	}
	oracle := ethereum.NewSignKeys()
	if cfg.OracleKeyHex != "" {
		if err := oracle.AddHexKey(cfg.OracleKeyHex); err != nil {
			return nil, fmt.Errorf("cannot import oracle key: %w", err)
		}
	} else if err := oracle.Generate(); err != nil {
		return nil, fmt.Errorf("cannot generate oracle key: %w", err)
	}
	firstID := cfg.FirstRequestID
	if firstID == 0 {
		firstID = 1
	}
	l := &Local{
		publicKey:  publicKey,
		privateKey: privateKey,
		oracle:     oracle,
		entries:    make(map[Handle]*entry),
		nextH:      1,
		nextID:     firstID,
	}
	l.pending.L = &l.lock
	return l, nil
}

// PublicKey returns the engine's encryption public key.
func (l *Local) PublicKey() ecc.Point {
	return l.publicKey
}

// OracleAddress returns the address callbacks are signed with.
func (l *Local) OracleAddress() string {
	return l.oracle.AddressString()
}

// SetCallbackHandler registers the consumer of decryption callbacks. It must
// be called before Start.
func (l *Local) SetCallbackHandler(fn CallbackFunc) {
	l.handlerLock.Lock()
	defer l.handlerLock.Unlock()
	l.handler = fn
}

// SubmitCiphertext validates raw against the well-formedness proof and
// registers the decrypted value. The proof is the big-endian encryption
// randomness k; the check is C1 == k*G, sufficient because the engine is the
// decrypting party.
func (l *Local) SubmitCiphertext(raw, proof []byte, maxValue uint64) (Handle, error) {
	ct := elgamal.NewCiphertext(l.publicKey)
	if err := ct.Deserialize(raw); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	k := new(big.Int).SetBytes(proof)
	if k.Sign() == 0 || !elgamal.CheckK(ct.C1, k) {
		return 0, ErrInvalidProof
	}
	_, value, err := elgamal.Decrypt(l.publicKey, l.privateKey, ct.C1, ct.C2, maxValue)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValueOutOfRange, err)
	}
	return l.register(value, ct), nil
}

// Encrypt registers a trivially encrypted value.
func (l *Local) Encrypt(value *big.Int) (Handle, error) {
	if value.Sign() < 0 {
		return 0, ErrValueOutOfRange
	}
	ct := elgamal.NewCiphertext(l.publicKey)
	if _, err := ct.Encrypt(value, l.publicKey, nil); err != nil {
		return 0, fmt.Errorf("cannot encrypt value: %w", err)
	}
	return l.register(new(big.Int).Set(value), ct), nil
}

func (l *Local) register(value *big.Int, ct *elgamal.Ciphertext) Handle {
	l.lock.Lock()
	defer l.lock.Unlock()
	h := l.nextH
	l.nextH++
	l.entries[h] = &entry{value: value, ciphertext: ct}
	return h
}

func (l *Local) operands(a, b Handle) (*entry, *entry, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	ea, ok := l.entries[a]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownHandle, a)
	}
	eb, ok := l.entries[b]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownHandle, b)
	}
	return ea, eb, nil
}

func (l *Local) operand(a Handle) (*entry, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	ea, ok := l.entries[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, a)
	}
	return ea, nil
}

// Add returns a handle to a+b. The ciphertext form is combined
// homomorphically.
func (l *Local) Add(a, b Handle) (Handle, error) {
	ea, eb, err := l.operands(a, b)
	if err != nil {
		return 0, err
	}
	ct := elgamal.NewCiphertext(l.publicKey)
	ct.Add(ea.ciphertext, eb.ciphertext)
	return l.register(new(big.Int).Add(ea.value, eb.value), ct), nil
}

// Sub returns a handle to a-b.
func (l *Local) Sub(a, b Handle) (Handle, error) {
	ea, eb, err := l.operands(a, b)
	if err != nil {
		return 0, err
	}
	neg := elgamal.NewCiphertext(l.publicKey)
	neg.Neg(eb.ciphertext)
	ct := elgamal.NewCiphertext(l.publicKey)
	ct.Add(ea.ciphertext, neg)
	return l.register(new(big.Int).Sub(ea.value, eb.value), ct), nil
}

// Mul returns a handle to a*b. Ciphertext-by-ciphertext products cannot be
// formed homomorphically in this ciphersystem, so the result ciphertext is a
// re-encryption of the shadow product.
func (l *Local) Mul(a, b Handle) (Handle, error) {
	ea, eb, err := l.operands(a, b)
	if err != nil {
		return 0, err
	}
	value := new(big.Int).Mul(ea.value, eb.value)
	return l.reencrypt(value)
}

// MulScalar returns a handle to a*scalar.
func (l *Local) MulScalar(a Handle, scalar *big.Int) (Handle, error) {
	ea, err := l.operand(a)
	if err != nil {
		return 0, err
	}
	ct := elgamal.NewCiphertext(l.publicKey)
	ct.ScalarMult(ea.ciphertext, scalar)
	return l.register(new(big.Int).Mul(ea.value, scalar), ct), nil
}

// DivScalar returns a handle to floor(a/scalar). Division truncates at every
// stage; callers relying on exact rounding must not combine divisions.
func (l *Local) DivScalar(a Handle, scalar *big.Int) (Handle, error) {
	if scalar.Sign() == 0 {
		return 0, ErrDivisionByZero
	}
	ea, err := l.operand(a)
	if err != nil {
		return 0, err
	}
	value := new(big.Int).Quo(ea.value, scalar)
	return l.reencrypt(value)
}

func (l *Local) reencrypt(value *big.Int) (Handle, error) {
	ct := elgamal.NewCiphertext(l.publicKey)
	if _, err := ct.Encrypt(new(big.Int).Mod(value, l.publicKey.Order()), l.publicKey, nil); err != nil {
		return 0, fmt.Errorf("cannot re-encrypt result: %w", err)
	}
	return l.register(value, ct), nil
}

// RequestDecryption registers an oracle job for the handles and returns its
// request id. The cleartext values are snapshotted at request time.
func (l *Local) RequestDecryption(handles []Handle) (types.RequestID, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	values := make([]*big.Int, len(handles))
	for i, h := range handles {
		e, ok := l.entries[h]
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
		}
		values[i] = new(big.Int).Set(e.value)
	}
	id := l.nextID
	l.nextID++
	l.queue = append(l.queue, job{id: id, values: values})
	l.pending.Signal()
	log.Debugw("decryption requested", "requestId", id, "handles", len(handles))
	return id, nil
}

// NextRequestID returns the id the next decryption request will get. Used to
// persist the high-water mark.
func (l *Local) NextRequestID() types.RequestID {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.nextID
}

// callbackDigest is the message the oracle signs: the big-endian request id
// followed by each value as a 32-byte big-endian word.
func callbackDigest(id types.RequestID, values []*big.Int) []byte {
	msg := make([]byte, 8, 8+32*len(values))
	binary.BigEndian.PutUint64(msg, uint64(id))
	for _, v := range values {
		var word [32]byte
		v.FillBytes(word[:])
		msg = append(msg, word[:]...)
	}
	return ethereum.HashRaw(msg)
}

// VerifyCallback authenticates a callback payload by recovering the signer
// of the digest and comparing it against the oracle address.
func (l *Local) VerifyCallback(id types.RequestID, values []*big.Int, proof []byte) error {
	signer, err := ethereum.AddrFromSignature(callbackDigest(id, values), proof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if signer != l.oracle.Address() {
		return ErrInvalidProof
	}
	return nil
}

// Start launches the callback dispatcher goroutine. The registered handler
// receives one callback per pending and future request until the context is
// cancelled.
func (l *Local) Start(ctx context.Context) error {
	l.handlerLock.RLock()
	handler := l.handler
	l.handlerLock.RUnlock()
	if handler == nil {
		return fmt.Errorf("no callback handler registered")
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		for {
			cb, ok := l.dequeue()
			if !ok {
				return
			}
			handler(cb)
		}
	}()
	go func() {
		// Wake the dispatcher so it can observe cancellation.
		<-l.ctx.Done()
		l.lock.Lock()
		l.pending.Broadcast()
		l.lock.Unlock()
	}()
	log.Infow("engine dispatcher started", "oracle", l.OracleAddress())
	return nil
}

// Stop cancels the dispatcher. Safe to call multiple times.
func (l *Local) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Local) dequeue() (Callback, bool) {
	l.lock.Lock()
	for len(l.queue) == 0 {
		if l.ctx != nil && l.ctx.Err() != nil {
			l.lock.Unlock()
			return Callback{}, false
		}
		l.pending.Wait()
	}
	j := l.queue[0]
	l.queue = l.queue[1:]
	l.lock.Unlock()
	return l.sign(j), true
}

// DeliverPending synchronously delivers every queued callback to the
// registered handler. Intended for tests and single-threaded drivers that do
// not run the dispatcher.
func (l *Local) DeliverPending() int {
	l.handlerLock.RLock()
	handler := l.handler
	l.handlerLock.RUnlock()
	if handler == nil {
		return 0
	}
	n := 0
	for {
		l.lock.Lock()
		if len(l.queue) == 0 {
			l.lock.Unlock()
			return n
		}
		j := l.queue[0]
		l.queue = l.queue[1:]
		l.lock.Unlock()
		handler(l.sign(j))
		n++
	}
}

func (l *Local) sign(j job) Callback {
	proof, err := l.oracle.SignEthereum(callbackDigest(j.id, j.values))
	if err != nil {
		// Signing only fails with a missing key, which NewLocal rules out.
		log.Errorf("cannot sign callback %d: %v", j.id, err)
	}
	return Callback{RequestID: j.id, Values: j.values, Proof: proof}
}
