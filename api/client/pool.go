package client

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/api"
	"github.com/cipherpool/cipherpool/crypto/ecc"
	"github.com/cipherpool/cipherpool/crypto/ecc/curves"
	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/types"
)

// Info fetches the pool parameters and reconstructs the encryption public
// key point.
func (c *HTTPclient) Info() (*api.Info, ecc.Point, error) {
	info := &api.Info{}
	if err := c.get(info, api.InfoEndpoint); err != nil {
		return nil, nil, err
	}
	pubKey := curves.New(curves.CurveTypeBabyJubJub)
	pubKey.SetPoint(info.EncryptionPubKey[0].MathBigInt(), info.EncryptionPubKey[1].MathBigInt())
	return info, pubKey, nil
}

// Pool fetches the pool account state.
func (c *HTTPclient) Pool() (*types.PoolView, error) {
	view := &types.PoolView{}
	if err := c.get(view, api.PoolEndpoint); err != nil {
		return nil, err
	}
	return view, nil
}

// Fund encrypts amount under the pool key, signs the submission with the
// funder key and submits it with the matching declared amount. Returns the
// verification request id.
func (c *HTTPclient) Fund(funder *ethereum.SignKeys, pubKey ecc.Point, amount *big.Int) (types.RequestID, error) {
	raw, proof, err := engine.EncryptInput(pubKey, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt funding: %w", err)
	}
	f := &api.Funding{
		Ciphertext: raw,
		Proof:      proof,
		Declared:   (*types.BigInt)(amount),
	}
	if f.Signature, err = funder.SignEthereum(f.FundingMessage()); err != nil {
		return 0, fmt.Errorf("failed to sign funding: %w", err)
	}
	resp := &api.RequestResponse{}
	if err := c.post(f, resp, api.FundingsEndpoint); err != nil {
		return 0, err
	}
	return resp.RequestID, nil
}

// Commit encrypts the participant score and submits the commitment.
func (c *HTTPclient) Commit(participant *ethereum.SignKeys, pubKey ecc.Point,
	score *big.Int, tier types.Tier,
) error {
	raw, proof, err := engine.EncryptInput(pubKey, score)
	if err != nil {
		return fmt.Errorf("failed to encrypt score: %w", err)
	}
	cm := &api.Commitment{
		Ciphertext: raw,
		Proof:      proof,
		Tier:       tier.String(),
	}
	if cm.Signature, err = participant.SignEthereum(cm.CommitmentMessage()); err != nil {
		return fmt.Errorf("failed to sign commitment: %w", err)
	}
	return c.post(cm, nil, api.CommitmentsEndpoint)
}

// Withdraw requests a bonus settlement for the signing participant and
// returns the settlement request id.
func (c *HTTPclient) Withdraw(participant *ethereum.SignKeys) (types.RequestID, error) {
	wd := &api.Withdrawal{}
	sig, err := participant.SignEthereum(api.WithdrawalMessage())
	if err != nil {
		return 0, fmt.Errorf("failed to sign withdrawal: %w", err)
	}
	wd.Signature = sig
	resp := &api.RequestResponse{}
	if err := c.post(wd, resp, api.WithdrawalsEndpoint); err != nil {
		return 0, err
	}
	return resp.RequestID, nil
}

// WithdrawRemainder requests a remainder settlement for the signing owner.
func (c *HTTPclient) WithdrawRemainder(owner *ethereum.SignKeys) (types.RequestID, error) {
	wd := &api.Withdrawal{}
	sig, err := owner.SignEthereum(api.RemainderMessage())
	if err != nil {
		return 0, fmt.Errorf("failed to sign withdrawal: %w", err)
	}
	wd.Signature = sig
	resp := &api.RequestResponse{}
	if err := c.post(wd, resp, api.RemainderEndpoint); err != nil {
		return 0, err
	}
	return resp.RequestID, nil
}

// ReopenWithdrawal asks the pool owner remediation path to clear a stranded
// withdrawal.
func (c *HTTPclient) ReopenWithdrawal(owner *ethereum.SignKeys, participant common.Address) error {
	req := &api.Reopen{Participant: participant}
	sig, err := owner.SignEthereum(req.ReopenMessage())
	if err != nil {
		return fmt.Errorf("failed to sign reopen request: %w", err)
	}
	req.Signature = sig
	return c.post(req, nil, api.ReopenEndpoint)
}

// Participant fetches the ledger view of one address.
func (c *HTTPclient) Participant(addr common.Address) (*types.ParticipantView, error) {
	view := &types.ParticipantView{}
	if err := c.get(view, api.ParticipantsEndpoint, addr.Hex()); err != nil {
		return nil, err
	}
	return view, nil
}

// PendingRequests fetches the in-flight decryption requests.
func (c *HTTPclient) PendingRequests() ([]*api.PendingRequestView, error) {
	var pending []*api.PendingRequestView
	if err := c.get(&pending, api.RequestsEndpoint); err != nil {
		return nil, err
	}
	return pending, nil
}

// Payouts fetches the settled-payout journal.
func (c *HTTPclient) Payouts() ([]*types.Payout, error) {
	var journal []*types.Payout
	if err := c.get(&journal, api.PayoutsEndpoint); err != nil {
		return nil, err
	}
	return journal, nil
}
