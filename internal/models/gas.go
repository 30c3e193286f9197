package models

import "math/big"

// Eip1559Tier is one speed tier of an EIP-1559 fee quote, all values in wei.
// Fields are big integers so oversized fee spikes survive intact; they
// serialize as plain JSON numbers.
type Eip1559Tier struct {
	MaxFee         *big.Int `json:"max_fee"`
	BaseFee        *big.Int `json:"base_fee"`
	MaxPriorityFee *big.Int `json:"max_priority_fee"`
}

// Eip1559Report groups the three speed tiers.
type Eip1559Report struct {
	Fast     Eip1559Tier `json:"fast"`
	Instant  Eip1559Tier `json:"instant"`
	Overkill Eip1559Tier `json:"overkill"`
}

// LegacyReport carries a single gas price per tier for pre-1559 chains.
type LegacyReport struct {
	Fast     *big.Int `json:"fast"`
	Instant  *big.Int `json:"instant"`
	Overkill *big.Int `json:"overkill"`
}

// GasReport is the gas-pricing subsystem output. Exactly one of Eip1559 and
// Legacy is set.
type GasReport struct {
	Source    string         `json:"source"`
	Timestamp int64          `json:"timestamp"`
	Eip1559   *Eip1559Report `json:"eip1559,omitempty"`
	Legacy    *LegacyReport  `json:"legacy,omitempty"`
}
