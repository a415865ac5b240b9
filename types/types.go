package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// HexBytes is a byte slice that marshals as a hex string in JSON.
// The "0x" prefix is accepted but not produced.
type HexBytes []byte

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(b) + `"`), nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid hex string %q", data)
	}
	s := strings.TrimPrefix(string(data[1:len(data)-1]), "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// BigInt is a wrapper around math/big.Int that marshals as a decimal
// string in JSON and as a big-endian byte slice in CBOR.
type BigInt big.Int

// MathBigInt converts b to a *big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

// SetBytes interprets buf as big-endian unsigned integer and sets b to that value.
func (b *BigInt) SetBytes(buf []byte) *BigInt {
	return (*BigInt)((*big.Int)(b).SetBytes(buf))
}

// Bytes returns the big-endian byte representation of b.
func (b *BigInt) Bytes() []byte {
	return (*big.Int)(b).Bytes()
}

func (b *BigInt) String() string {
	return (*big.Int)(b).String()
}

func (b *BigInt) MarshalText() ([]byte, error) {
	return []byte((*big.Int)(b).String()), nil
}

func (b *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(b).SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid decimal string %q", data)
	}
	return nil
}

// MarshalCBOR encodes b as its big-endian bytes.
func (b *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.Bytes())
}

// UnmarshalCBOR decodes big-endian bytes into b.
func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	b.SetBytes(buf)
	return nil
}
