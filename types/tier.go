package types

import "fmt"

// Tier is the rank assigned to a participant at commitment time. The rank
// selects the basis-point share of the pool used in the bonus formula.
// TierNone is the zero value and is never valid for commitment.
type Tier uint8

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
)

// DefaultTierBasisPoints maps each valid tier to its reward share in
// hundredths of a percent (200 = 2.0%).
var DefaultTierBasisPoints = map[Tier]uint64{
	TierBronze:   200,
	TierSilver:   500,
	TierGold:     800,
	TierPlatinum: 1500,
}

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Valid reports whether t is one of the ranked tiers.
func (t Tier) Valid() bool {
	return t >= TierBronze && t <= TierPlatinum
}

// TierFromString parses the string representation produced by String.
func TierFromString(s string) (Tier, error) {
	for t := TierNone; t <= TierPlatinum; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown tier %q", s)
}
