// Package ecc abstracts the elliptic-curve group used by the encryption
// layer behind a Point interface, so the ciphersystem does not depend on a
// concrete curve backend.
package ecc

import "math/big"

// Point represents the affine coordinates of an elliptic curve group element
// and the operations the ElGamal layer needs from it.
type Point interface {
	// New returns a fresh point of the same curve, set to the identity.
	New() Point

	// Order returns the order of the curve subgroup.
	Order() *big.Int

	// Add adds a and b and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is Add with exclusive access to the receiver.
	SafeAdd(a, b Point)

	// ScalarMult multiplies a by scalar and stores the result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the generator by scalar and stores the
	// result in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Equal reports whether the receiver and a are the same group element.
	Equal(a Point) bool

	// Neg stores the inverse of a in the receiver.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set copies a into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the subgroup generator.
	SetGenerator()

	// String returns a human-readable representation of the point.
	String() string

	// Point returns the affine X and Y coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the affine X and Y coordinates and returns the point.
	SetPoint(x, y *big.Int) Point

	// Marshal serializes the point into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice produced by Marshal.
	Unmarshal(buf []byte) error

	// Type returns the curve type identifier.
	Type() string
}

// BigToFF returns the finite-field representation of iv in the field defined
// by baseField.
func BigToFF(baseField, iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(baseField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, baseField)
}
