// Package bjj implements the ecc.Point interface over the BabyJubJub curve
// using the gnark-crypto twisted Edwards arithmetic. Points are kept in the
// library's native reduced twisted Edwards coordinates.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"github.com/cipherpool/cipherpool/crypto/ecc"
)

const CurveType = "bjj_gnark"

// Params holds the BabyJubJub curve parameters.
var Params babyjubjub.CurveParams

func init() {
	Params = babyjubjub.GetEdwardsCurve()
}

// BJJ is the affine representation of a BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity element.
func New() ecc.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

// New creates a new BJJ point set to the identity element.
func (g *BJJ) New() ecc.Point {
	return New()
}

// Order returns the order of the BabyJubJub subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&Params.Order)
}

// Add performs the addition of two points and stores the result in g.
func (g *BJJ) Add(a, b ecc.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

// SafeAdd performs the addition of two points holding a lock on g.
func (g *BJJ) SafeAdd(a, b ecc.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

// ScalarMult performs scalar multiplication of a point by a scalar.
func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

// ScalarBaseMult performs scalar multiplication using the base point.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.SetGenerator()
	g.ScalarMult(g, scalar)
}

// Equal checks if the given point is equal to the current point.
func (g *BJJ) Equal(a ecc.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

// Neg negates the given point and stores the result in g.
func (g *BJJ) Neg(a ecc.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

// SetZero sets the current point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

// Set sets g to the value of another point.
func (g *BJJ) Set(a ecc.Point) {
	g.inner.Set(a.(*BJJ).inner)
}

// SetGenerator sets the point to the BabyJubJub generator.
func (g *BJJ) SetGenerator() {
	g.inner.Set(&Params.Base)
}

// String returns a string representation of the point coordinates.
func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

// Marshal serializes the point into a byte slice.
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

// Unmarshal deserializes the point from a byte slice.
func (g *BJJ) Unmarshal(buf []byte) error {
	return g.inner.Unmarshal(buf)
}

type pointJSON struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// MarshalJSON serializes the point coordinates into a JSON object.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal(pointJSON{X: x.String(), Y: y.String()})
}

// UnmarshalJSON deserializes the point coordinates from a JSON object.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	p := pointJSON{}
	if err := json.Unmarshal(buf, &p); err != nil {
		return err
	}
	x, ok := new(big.Int).SetString(p.X, 10)
	if !ok {
		return fmt.Errorf("invalid point coordinate x %q", p.X)
	}
	y, ok := new(big.Int).SetString(p.Y, 10)
	if !ok {
		return fmt.Errorf("invalid point coordinate y %q", p.Y)
	}
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
	}
	g.inner.X.SetBigInt(x)
	g.inner.Y.SetBigInt(y)
	return nil
}

// Point returns the affine X and Y coordinates of the point.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return x, y
}

// SetPoint sets the point from affine X and Y coordinates.
func (g *BJJ) SetPoint(x, y *big.Int) ecc.Point {
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
	}
	g.inner.X.SetBigInt(x)
	g.inner.Y.SetBigInt(y)
	return g
}

// Type returns the curve type identifier.
func (g *BJJ) Type() string {
	return CurveType
}
