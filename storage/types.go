package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/types"
)

// Participant is the persisted ledger entry for one address.
type Participant struct {
	Address      common.Address `json:"address"      cbor:"0,keyasint"`
	ScoreHandle  uint64         `json:"scoreHandle"  cbor:"1,keyasint"`
	Tier         types.Tier     `json:"tier"         cbor:"2,keyasint"`
	HasCommitted bool           `json:"hasCommitted" cbor:"3,keyasint"`
	HasWithdrawn bool           `json:"hasWithdrawn" cbor:"4,keyasint"`
	SettledBonus *types.BigInt  `json:"settledBonus" cbor:"5,keyasint,omitempty"`
}

// PoolState is the persisted pool account: the paired encrypted and
// cleartext balances plus the funded and halted flags.
type PoolState struct {
	BalanceHandle uint64        `json:"balanceHandle" cbor:"0,keyasint"`
	ClearBalance  *types.BigInt `json:"clearBalance"  cbor:"1,keyasint"`
	Funded        bool          `json:"funded"        cbor:"2,keyasint"`
	Halted        bool          `json:"halted"        cbor:"3,keyasint"`
}

// PendingRequest is the persisted context of an in-flight decryption
// request.
type PendingRequest struct {
	ID             types.RequestID `json:"id"             cbor:"0,keyasint"`
	Purpose        types.Purpose   `json:"purpose"        cbor:"1,keyasint"`
	Originator     common.Address  `json:"originator"     cbor:"2,keyasint"`
	DeclaredAmount *types.BigInt   `json:"declaredAmount" cbor:"3,keyasint,omitempty"`
	CreatedAt      int64           `json:"createdAt"      cbor:"4,keyasint"`
}
