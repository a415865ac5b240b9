package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint exposes the encryption public key, the pool owner and
	// the tier table, everything a client needs to build requests
	InfoEndpoint = "/info"
	// PoolEndpoint is the endpoint to get the pool account state
	PoolEndpoint = "/pool"
	// FundingsEndpoint is the endpoint for submitting an encrypted funding
	FundingsEndpoint = "/pool/fundings"
	// CommitmentsEndpoint is the endpoint for committing an encrypted score
	CommitmentsEndpoint = "/pool/commitments"
	// WithdrawalsEndpoint is the endpoint for requesting a bonus withdrawal
	WithdrawalsEndpoint = "/pool/withdrawals"
	// ReopenEndpoint is the owner remediation endpoint for stranded
	// withdrawals
	ReopenEndpoint = "/pool/withdrawals/reopen"
	// RemainderEndpoint is the owner endpoint for withdrawing the
	// remaining balance
	RemainderEndpoint = "/pool/remainder"
	// ParticipantsEndpoint enumerates the committed participants
	ParticipantsEndpoint = "/pool/participants"
	// ParticipantEndpoint is the endpoint to get one participant view
	ParticipantURLParam = "address"
	ParticipantEndpoint = "/pool/participants/{" + ParticipantURLParam + "}"
	// RequestsEndpoint lists the in-flight decryption requests
	RequestsEndpoint = "/pool/requests"
	// PayoutsEndpoint returns the settled-payout journal
	PayoutsEndpoint = "/pool/payouts"
	// The three oracle callback entry points, one per request purpose.
	// Each accepts (requestId, cleartexts, proof).
	CallbackFundingEndpoint   = "/callbacks/funding"
	CallbackBonusEndpoint     = "/callbacks/bonus"
	CallbackRemainderEndpoint = "/callbacks/remainder"
)
