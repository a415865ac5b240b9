package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/types"
)

// Info is the response of the info endpoint: everything a client needs to
// encrypt inputs and address the pool.
type Info struct {
	EncryptionPubKey [2]types.BigInt   `json:"encryptionPubKey"`
	Owner            common.Address    `json:"owner"`
	TierBasisPoints  map[string]uint64 `json:"tierBasisPoints"`
}

// Funding is the request body for submitting an encrypted funding. The
// signature authenticates the funder over FundingMessage.
type Funding struct {
	Ciphertext types.HexBytes `json:"ciphertext"`
	Proof      types.HexBytes `json:"proof"`
	Declared   *types.BigInt  `json:"declared"`
	Signature  types.HexBytes `json:"signature"`
}

// FundingMessage is the message a funder signs to authenticate a funding
// submission.
func (f *Funding) FundingMessage() []byte {
	return []byte(fmt.Sprintf("funding:%s:%x", f.Declared.String(), []byte(f.Ciphertext)))
}

// Commitment is the request body for committing an encrypted score.
type Commitment struct {
	Ciphertext types.HexBytes `json:"ciphertext"`
	Proof      types.HexBytes `json:"proof"`
	Tier       string         `json:"tier"`
	Signature  types.HexBytes `json:"signature"`
}

// CommitmentMessage is the message a participant signs to authenticate a
// score commitment.
func (c *Commitment) CommitmentMessage() []byte {
	return []byte(fmt.Sprintf("commitment:%s:%x", c.Tier, []byte(c.Ciphertext)))
}

// Withdrawal is the request body for a bonus or remainder withdrawal.
type Withdrawal struct {
	Signature types.HexBytes `json:"signature"`
}

// WithdrawalMessage is the signed message of a bonus withdrawal.
func WithdrawalMessage() []byte {
	return []byte("withdrawal:bonus")
}

// RemainderMessage is the signed message of a remainder withdrawal.
func RemainderMessage() []byte {
	return []byte("withdrawal:remainder")
}

// Reopen is the owner request body for reopening a stranded withdrawal.
type Reopen struct {
	Participant common.Address `json:"participant"`
	Signature   types.HexBytes `json:"signature"`
}

// ReopenMessage is the message the owner signs to reopen a withdrawal.
func (r *Reopen) ReopenMessage() []byte {
	return []byte(fmt.Sprintf("reopen:%s", r.Participant.Hex()))
}

// RequestResponse carries the decryption request id opened by a mutating
// call.
type RequestResponse struct {
	RequestID types.RequestID `json:"requestId"`
}

// Callback is the request body of the three oracle callback endpoints.
type Callback struct {
	RequestID types.RequestID `json:"requestId"`
	Values    []*types.BigInt `json:"values"`
	Proof     types.HexBytes  `json:"proof"`
}

// ParticipantList is the response of the participant enumeration endpoint,
// in commitment (insertion) order.
type ParticipantList struct {
	Participants []common.Address `json:"participants"`
}

// PendingRequestView is the externally visible projection of an in-flight
// decryption request.
type PendingRequestView struct {
	ID         types.RequestID `json:"id"`
	Purpose    string          `json:"purpose"`
	Originator common.Address  `json:"originator"`
	CreatedAt  int64           `json:"createdAt"`
}
