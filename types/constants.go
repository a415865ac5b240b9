package types

const (
	// MaxScore is the highest performance score a participant may commit.
	// It bounds the discrete-log search when the engine validates a
	// submitted score ciphertext.
	MaxScore = 1 << 20
	// MaxFunding is the highest single funding amount accepted by the
	// pool, bounding ciphertext validation the same way.
	MaxFunding = 1 << 40
	// BasisPointDenominator converts basis points to a fraction.
	BasisPointDenominator = 10000
	// ScoreDenominator is the first-stage divisor of the bonus formula.
	ScoreDenominator = 100
)
