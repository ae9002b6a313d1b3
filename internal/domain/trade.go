package domain

import "time"

// TradeDirection distinguishes buys from sells.
type TradeDirection string

const (
	TradeDirectionBuy  TradeDirection = "buy"
	TradeDirectionSell TradeDirection = "sell"
)

// TradeRequest is the caller's intent for a single buy or sell. For buys,
// Amount is collateral in and MinOut is the minimum acceptable token output.
// For sells, Amount is tokens to burn and MinOut is the minimum acceptable
// post-fee collateral output.
type TradeRequest struct {
	Amount uint64 `json:"amount"`
	Side   Side   `json:"side"`
	MinOut uint64 `json:"min_out"`
}

// Trade is an executed trade record.
type Trade struct {
	ID          string         `json:"id"`
	MarketID    uint64         `json:"market_id"`
	Trader      string         `json:"trader"`
	Side        Side           `json:"side"`
	Direction   TradeDirection `json:"direction"`
	AmountIn    uint64         `json:"amount_in"`
	AmountOut   uint64         `json:"amount_out"`
	Fee         uint64         `json:"fee"`
	YesPriceBps uint64         `json:"yes_price_bps"`
	NoPriceBps  uint64         `json:"no_price_bps"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Redemption is a settled winning-position payout record.
type Redemption struct {
	ID           string    `json:"id"`
	MarketID     uint64    `json:"market_id"`
	Holder       string    `json:"holder"`
	Side         Side      `json:"side"`
	TokensBurned uint64    `json:"tokens_burned"`
	Payout       uint64    `json:"payout"`
	CreatedAt    time.Time `json:"created_at"`
}
