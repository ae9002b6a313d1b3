package domain

import "time"

// Signal bus channels for market events.
const (
	ChannelMarkets     = "markets"
	ChannelTrades      = "trades"
	ChannelRedemptions = "redemptions"
)

// Event names carried in the payloads below.
const (
	EventMarketCreated    = "market_created"
	EventTokensBought     = "tokens_bought"
	EventTokensSold       = "tokens_sold"
	EventMarketResolved   = "market_resolved"
	EventPositionRedeemed = "position_redeemed"
)

// MarketCreatedEvent is published when a market is created and funded.
type MarketCreatedEvent struct {
	Event            string    `json:"event"`
	MarketID         uint64    `json:"market_id"`
	Creator          string    `json:"creator"`
	Question         string    `json:"question"`
	EndTime          time.Time `json:"end_time"`
	InitialLiquidity uint64    `json:"initial_liquidity"`
}

// TradeEvent is published for every executed buy or sell.
type TradeEvent struct {
	Event       string `json:"event"`
	MarketID    uint64 `json:"market_id"`
	Trader      string `json:"trader"`
	Side        Side   `json:"side"`
	AmountIn    uint64 `json:"amount_in"`
	AmountOut   uint64 `json:"amount_out"`
	Fee         uint64 `json:"fee"`
	YesPriceBps uint64 `json:"yes_price_bps"`
	NoPriceBps  uint64 `json:"no_price_bps"`
}

// MarketResolvedEvent is published when the oracle resolves a market.
type MarketResolvedEvent struct {
	Event    string    `json:"event"`
	MarketID uint64    `json:"market_id"`
	Outcome  Outcome   `json:"outcome"`
	Resolver string    `json:"resolver"`
	At       time.Time `json:"at"`
}

// PositionRedeemedEvent is published for every winning-position payout.
type PositionRedeemedEvent struct {
	Event        string `json:"event"`
	MarketID     uint64 `json:"market_id"`
	Holder       string `json:"holder"`
	TokensBurned uint64 `json:"tokens_burned"`
	Payout       uint64 `json:"payout"`
}
