package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
)

// bigIntEquals compares *BigInt values by numeric value, since go-cmp
// cannot look at big.Int's unexported fields.
var bigIntEquals = qt.CmpEquals(cmp.Comparer(func(x, y *BigInt) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.MathBigInt().Cmp(y.MathBigInt()) == 0
}))

func TestBigIntJSON(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	data, err := json.Marshal(map[string]*BigInt{"bi": bi})
	c.Assert(err, qt.IsNil)

	var out map[string]*BigInt
	c.Assert(json.Unmarshal(data, &out), qt.IsNil)
	c.Assert(out["bi"], bigIntEquals, bi)
}

func TestBigIntCBOR(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	data, err := cbor.Marshal(map[string]*BigInt{"bi": bi})
	c.Assert(err, qt.IsNil)

	var out map[string]*BigInt
	c.Assert(cbor.Unmarshal(data, &out), qt.IsNil)
	c.Assert(out["bi"], bigIntEquals, bi)
}

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)
	hb := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(hb)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"deadbeef"`)

	var out HexBytes
	c.Assert(json.Unmarshal([]byte(`"0xdeadbeef"`), &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, hb)
}

func TestTierParsing(t *testing.T) {
	c := qt.New(t)
	for tier := TierBronze; tier <= TierPlatinum; tier++ {
		parsed, err := TierFromString(tier.String())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed, qt.Equals, tier)
		c.Assert(tier.Valid(), qt.IsTrue)
	}
	c.Assert(TierNone.Valid(), qt.IsFalse)
	_, err := TierFromString("diamond")
	c.Assert(err, qt.IsNotNil)
}
