package curves

import (
	"fmt"

	"github.com/cipherpool/cipherpool/crypto/ecc"
	"github.com/cipherpool/cipherpool/crypto/ecc/bjj"
)

const (
	// CurveTypeBabyJubJub is the default curve for the score ciphersystem.
	CurveTypeBabyJubJub = "bjj_gnark"
)

// New creates a new instance of a curve point implementation based on the
// provided type string. If the type is not supported, it panics.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJub:
		return bjj.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}
