package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherpool/cipherpool/crypto/ecc/curves"
)

func TestGenerateKey(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, publicKey, qt.Not(qt.IsNil))
	qt.Assert(t, privateKey, qt.Not(qt.IsNil))

	// publicKey must equal privateKey * G
	testPoint := curve.New()
	testPoint.SetGenerator()
	testPoint.ScalarMult(testPoint, privateKey)
	qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue)
}

func TestEncryptDecrypt(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	maxMessage := uint64(1000)
	for _, m := range []uint64{0, 1, 42, 999} {
		msg := big.NewInt(int64(m))
		c1, c2, k, err := Encrypt(publicKey, msg)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, k, qt.Not(qt.IsNil))
		qt.Assert(t, CheckK(c1, k), qt.IsTrue)

		_, decrypted, err := Decrypt(publicKey, privateKey, c1, c2, maxMessage)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, decrypted.Uint64(), qt.Equals, m)
	}
}

func TestHomomorphicAdd(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	a := NewCiphertext(curve)
	_, err = a.Encrypt(big.NewInt(120), publicKey, nil)
	qt.Assert(t, err, qt.IsNil)
	b := NewCiphertext(curve)
	_, err = b.Encrypt(big.NewInt(33), publicKey, nil)
	qt.Assert(t, err, qt.IsNil)

	sum := NewCiphertext(curve)
	sum.Add(a, b)
	_, decrypted, err := Decrypt(publicKey, privateKey, sum.C1, sum.C2, 1000)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, decrypted.Uint64(), qt.Equals, uint64(153))
}

func TestHomomorphicScalarMult(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	a := NewCiphertext(curve)
	_, err = a.Encrypt(big.NewInt(7), publicKey, nil)
	qt.Assert(t, err, qt.IsNil)

	scaled := NewCiphertext(curve)
	scaled.ScalarMult(a, big.NewInt(9))
	_, decrypted, err := Decrypt(publicKey, privateKey, scaled.C1, scaled.C2, 100)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, decrypted.Uint64(), qt.Equals, uint64(63))
}

func TestSerializeRoundTrip(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, _, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	z := NewCiphertext(curve)
	_, err = z.Encrypt(big.NewInt(500), publicKey, nil)
	qt.Assert(t, err, qt.IsNil)

	data := z.Serialize()
	qt.Assert(t, len(data), qt.Equals, SizeCiphertext)

	restored := NewCiphertext(curve)
	qt.Assert(t, restored.Deserialize(data), qt.IsNil)
	qt.Assert(t, restored.C1.Equal(z.C1), qt.IsTrue)
	qt.Assert(t, restored.C2.Equal(z.C2), qt.IsTrue)

	qt.Assert(t, restored.Deserialize(data[1:]), qt.IsNotNil)
}
