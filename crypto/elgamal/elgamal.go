// Package elgamal implements the additively homomorphic ElGamal ciphersystem
// used for score and funding submissions. Messages are encoded in the
// exponent, so ciphertexts can be added and multiplied by scalars without
// decryption; recovering a plaintext requires solving a bounded discrete
// logarithm.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/cipherpool/cipherpool/crypto/ecc"
)

// RandK generates a random scalar suitable for encryption randomness.
func RandK() (*big.Int, error) {
	kBytes := make([]byte, 20)
	if _, err := rand.Read(kBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	k := new(big.Int).SetBytes(kBytes)
	return arbo.BigToFF(arbo.BN254BaseField, k), nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair on
// the curve of the given point.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	order := curve.Order()
	d, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1) // avoid zero private keys
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// Encrypt encrypts a message under the public key. It generates a random k
// and returns the two ciphertext points along with the k used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK()
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK encrypts a message under the public key using the provided
// randomness. It returns C1 = k*G and C2 = msg*G + k*pubKey.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	order := pubKey.Order()
	msg = new(big.Int).Mod(msg, order)
	// C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// M = msg * G
	m := pubKey.New()
	m.ScalarBaseMult(msg)
	// C2 = M + s
	c2 := pubKey.New()
	c2.Add(m, s)
	return c1, c2, nil
}

// Decrypt recovers the message scalar from the ciphertext (c1, c2) with the
// private key, searching the discrete log up to maxMessage. It returns the
// decoded point M = c2 - d*c1 and the message.
func Decrypt(publicKey ecc.Point, privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (M ecc.Point, message *big.Int, err error) {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1) // dC1 = -d*c1

	M = c2.New()
	M.Set(c2)
	M.Add(M, dC1) // M = c2 - d*c1

	G := publicKey.New()
	G.SetGenerator()

	message, err = BabyStepGiantStep(M, G, maxMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return M, message, nil
}

// BabyStepGiantStep solves M = x*G for x in [0, maxMessage] using the
// baby-step giant-step algorithm.
func BabyStepGiantStep(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	babySteps := make(map[string]uint64, mSqrt)
	babyStep := M.New()
	babyStep.SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(babyStep, G)
	}

	// c = -mSqrt * G
	c := M.New()
	c.ScalarBaseMult(new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := M.New()
	giantStep.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[giantStep.String()]; found {
			return new(big.Int).SetUint64(i*mSqrt + j), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("discrete logarithm not found within bound %d", maxMessage)
}

// CheckK reports whether the given k was the randomness used to produce c1,
// i.e. c1 == k*G. It does not require decrypting the message.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	kg := c1.New()
	kg.ScalarBaseMult(k)
	return kg.Equal(c1)
}
