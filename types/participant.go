package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// ParticipantView is the read-only projection of a ledger entry, served by
// the info accessor and the HTTP API. Unknown addresses yield the zero value.
type ParticipantView struct {
	Address      common.Address `json:"address"`
	Tier         Tier           `json:"tier"`
	HasCommitted bool           `json:"hasCommitted"`
	HasWithdrawn bool           `json:"hasWithdrawn"`
	SettledBonus *BigInt        `json:"settledBonus,omitempty"`
}

// PoolView is the externally observable state of the pool account.
type PoolView struct {
	Owner        common.Address `json:"owner"`
	ClearBalance *BigInt        `json:"clearBalance"`
	Funded       bool           `json:"funded"`
	Halted       bool           `json:"halted"`
	Participants int            `json:"participants"`
}

// Payout is one entry of the settled-payout journal.
type Payout struct {
	Recipient common.Address `json:"recipient"      cbor:"0,keyasint"`
	Amount    *BigInt        `json:"amount"         cbor:"1,keyasint"`
	RequestID RequestID      `json:"requestId"      cbor:"2,keyasint"`
	Purpose   Purpose        `json:"purpose"        cbor:"3,keyasint"`
	Timestamp int64          `json:"timestamp"      cbor:"4,keyasint"`
}
