package types

import "fmt"

// RequestID identifies a decryption request issued to the encryption engine.
// Identifiers are monotonic within an engine instance and never reused.
type RequestID uint64

func (r RequestID) String() string {
	return fmt.Sprintf("%d", uint64(r))
}

// Purpose is the category of a pending decryption request. Each purpose has
// at most one request outstanding at a time.
type Purpose uint8

const (
	PurposeUnknown Purpose = iota
	PurposeVerifyFunding
	PurposeSettleBonus
	PurposeSettleRemainder
)

func (p Purpose) String() string {
	switch p {
	case PurposeVerifyFunding:
		return "verifyFunding"
	case PurposeSettleBonus:
		return "settleBonus"
	case PurposeSettleRemainder:
		return "settleRemainder"
	}
	return "unknown"
}

// Valid reports whether p is one of the three request categories.
func (p Purpose) Valid() bool {
	return p >= PurposeVerifyFunding && p <= PurposeSettleRemainder
}
