package engine

import (
	"fmt"
	"math/big"

	"github.com/cipherpool/cipherpool/crypto/ecc"
	"github.com/cipherpool/cipherpool/crypto/elgamal"
)

// EncryptInput encrypts value under the engine public key and returns the
// serialized ciphertext together with its well-formedness proof (the
// big-endian encryption randomness). This is the client-side half of
// SubmitCiphertext.
func EncryptInput(publicKey ecc.Point, value *big.Int) (raw, proof []byte, err error) {
	k, err := elgamal.RandK()
	if err != nil {
		return nil, nil, err
	}
	ct := elgamal.NewCiphertext(publicKey)
	if _, err := ct.Encrypt(value, publicKey, k); err != nil {
		return nil, nil, fmt.Errorf("cannot encrypt input: %w", err)
	}
	return ct.Serialize(), k.Bytes(), nil
}
