package distributor

import (
	"fmt"
	"math/big"
	"time"

	"github.com/cipherpool/cipherpool/types"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultRequestTimeout is how long a pending decryption request must be
// outstanding before the owner may reopen the originating withdrawal.
const DefaultRequestTimeout = 10 * time.Minute

// TransferFunc pays out a settled cleartext amount to a recipient. The
// default implementation only records the payout in the journal; deployments
// wire an actual payment rail here. Implementations must not call back into
// the Protocol.
type TransferFunc func(recipient common.Address, amount *big.Int) error

// Config carries the deployment parameters of a distribution pool. All
// fields except Owner are optional and fall back to defaults.
type Config struct {
	// Owner is the only address allowed to withdraw the remainder and run
	// remediation.
	Owner common.Address
	// TierBasisPoints overrides the default tier multiplier table.
	TierBasisPoints map[types.Tier]uint64
	// MaxScore bounds the plaintext of committed scores.
	MaxScore uint64
	// MaxFunding bounds the plaintext of funding amounts.
	MaxFunding uint64
	// RequestTimeout is the age after which a pending request is eligible
	// for remediation.
	RequestTimeout time.Duration
	// Transfer executes payouts. Nil means journal-only payouts.
	Transfer TransferFunc
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() (Config, error) {
	if c.Owner == (common.Address{}) {
		return c, fmt.Errorf("config: owner address is required")
	}
	if c.TierBasisPoints == nil {
		c.TierBasisPoints = types.DefaultTierBasisPoints
	}
	if c.MaxScore == 0 {
		c.MaxScore = types.MaxScore
	}
	if c.MaxFunding == 0 {
		c.MaxFunding = types.MaxFunding
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c, nil
}

// basisPoints returns the multiplier for a tier, or false for unknown tiers.
func (c Config) basisPoints(t types.Tier) (uint64, bool) {
	bps, ok := c.TierBasisPoints[t]
	return bps, ok
}
