package domain

import "time"

// MaxFeeBps caps the protocol fee at 30%.
const MaxFeeBps = 3000

// Protocol is the singleton protocol-wide state. Markets read it on every
// operation; it is never cached across a trade so that a pause or fee change
// takes effect immediately.
type Protocol struct {
	FeeBps       uint64    `json:"fee_bps"`
	MinLiquidity uint64    `json:"min_liquidity"`
	Paused       bool      `json:"paused"`
	FeesAccrued  uint64    `json:"fees_accrued"`
	MarketCount  uint64    `json:"market_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
