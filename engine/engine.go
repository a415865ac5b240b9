// Package engine defines the encryption-engine boundary of the distribution
// protocol: ciphertext submission, homomorphic arithmetic on opaque handles,
// and the asynchronous decryption oracle. The core protocol only ever
// depends on the Engine interface; Local is the in-process trusted
// implementation.
package engine

import (
	"errors"
	"math/big"

	"github.com/cipherpool/cipherpool/crypto/ecc"
	"github.com/cipherpool/cipherpool/types"
)

var (
	// ErrInvalidProof is returned when a ciphertext well-formedness proof
	// or a callback authenticity proof does not verify.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrUnknownHandle is returned when an operation references a handle
	// the engine has never issued.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrValueOutOfRange is returned when a submitted ciphertext decrypts
	// outside the declared bound.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrDivisionByZero is returned on a homomorphic division by zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// Handle is an opaque reference to a value held in encrypted form by the
// engine. Handles are only meaningful to the engine that issued them.
type Handle uint64

// Callback carries the cleartext result of a decryption request together
// with the authenticity proof produced by the oracle.
type Callback struct {
	RequestID types.RequestID
	Values    []*big.Int
	Proof     types.HexBytes
}

// CallbackFunc consumes a delivered decryption callback.
type CallbackFunc func(cb Callback)

// Engine is the contract the distribution protocol consumes. All arithmetic
// is performed on encrypted handles; only RequestDecryption ever reveals a
// plaintext, and only through the asynchronous callback path.
type Engine interface {
	// PublicKey returns the encryption public key clients encrypt under.
	PublicKey() ecc.Point

	// SubmitCiphertext validates raw (a serialized ciphertext) against its
	// well-formedness proof, registers the value and returns its handle.
	// The maxValue bound limits the plaintext search space.
	SubmitCiphertext(raw, proof []byte, maxValue uint64) (Handle, error)

	// Add returns a handle to the sum of the two operands.
	Add(a, b Handle) (Handle, error)
	// Sub returns a handle to the difference of the two operands.
	Sub(a, b Handle) (Handle, error)
	// Mul returns a handle to the product of the two operands.
	Mul(a, b Handle) (Handle, error)
	// MulScalar returns a handle to the operand multiplied by a scalar.
	MulScalar(a Handle, scalar *big.Int) (Handle, error)
	// DivScalar returns a handle to the operand divided (flooring) by a
	// scalar.
	DivScalar(a Handle, scalar *big.Int) (Handle, error)
	// Encrypt registers a trivially encrypted cleartext value and returns
	// its handle.
	Encrypt(value *big.Int) (Handle, error)

	// RequestDecryption registers an oracle job for the given handles and
	// returns its request id. Exactly one callback is eventually delivered
	// per request.
	RequestDecryption(handles []Handle) (types.RequestID, error)

	// VerifyCallback authenticates a callback payload. It returns
	// ErrInvalidProof if the proof does not attest the values for the id.
	VerifyCallback(id types.RequestID, values []*big.Int, proof []byte) error
}
