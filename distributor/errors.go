package distributor

import "errors"

// Validation and state errors, returned before any state change.
var (
	// ErrInvalidAmount is returned on a non-positive funding amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidTier is returned when committing with the none tier.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrAlreadyCommitted is returned on a second commitment attempt.
	ErrAlreadyCommitted = errors.New("already committed")
	// ErrAlreadyWithdrawn is returned when a withdrawn participant commits
	// or withdraws again.
	ErrAlreadyWithdrawn = errors.New("already withdrawn")
	// ErrNotCommitted is returned when withdrawing without a commitment.
	ErrNotCommitted = errors.New("not committed")
	// ErrPoolUninitialized is returned when committing before the pool has
	// been funded.
	ErrPoolUninitialized = errors.New("pool uninitialized")
	// ErrNothingToWithdraw is returned on remainder withdrawal of an empty
	// pool.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	// ErrNotOwner is returned when a non-owner calls an owner-only
	// operation.
	ErrNotOwner = errors.New("not the pool owner")
	// ErrRequestInFlight is returned when opening a request for a purpose
	// that already has one outstanding.
	ErrRequestInFlight = errors.New("request of this purpose already in flight")
	// ErrRequestNotExpired is returned by the remediation path while the
	// pending request is still within its timeout.
	ErrRequestNotExpired = errors.New("pending request not expired")
)

// Settlement errors, raised while consuming a decryption callback.
var (
	// ErrInvalidProof is returned when the callback authenticity proof
	// does not verify. No state is mutated.
	ErrInvalidProof = errors.New("invalid callback proof")
	// ErrUnknownRequest is returned when the callback id does not resolve
	// to the outstanding request of its purpose. No state is mutated.
	ErrUnknownRequest = errors.New("unknown or stale request")
	// ErrZeroBonus is returned when a bonus settlement carries a zero
	// value.
	ErrZeroBonus = errors.New("zero bonus")
	// ErrInsufficientFunds is returned when a settlement value exceeds the
	// cleartext pool balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrPoolMismatch is returned when the oracle-confirmed value diverges
	// from the declared one. It is an integrity alarm: the pool is halted.
	ErrPoolMismatch = errors.New("pool balance mismatch")
	// ErrPoolHalted is returned by fund-moving operations after an
	// integrity alarm.
	ErrPoolHalted = errors.New("pool halted after integrity alarm")
)
