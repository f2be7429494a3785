package model

import "time"

// Market is the normalized record for one market canister. Token references
// are weak: they hold canister ids resolved via the token store on read.
type Market struct {
	CanisterID string `json:"canister_id"`
	Symbol     string `json:"symbol"`
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`

	LastTick     int32  `json:"last_tick"`
	LastPriceE12 int64  `json:"last_price_e12"`
	SqrtPriceX64 uint64 `json:"sqrt_price_x64"`

	LiquidityE6       int64 `json:"liquidity_e6"`
	Volume24hE6       int64 `json:"volume_24h_e6"`
	TvlE6             int64 `json:"tvl_e6"`
	PriceChange24hBps int64 `json:"price_change_24h_bps"`

	FeePips  uint32 `json:"fee_pips"`
	IsActive bool   `json:"is_active"`

	Source        Source    `json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// MarketPatch is a partial market update. Nil fields keep their stored value.
type MarketPatch struct {
	CanisterID string

	Symbol     *string
	BaseToken  *string
	QuoteToken *string

	LastTick     *int32
	LastPriceE12 *int64
	SqrtPriceX64 *uint64

	LiquidityE6       *int64
	Volume24hE6       *int64
	TvlE6             *int64
	PriceChange24hBps *int64

	FeePips  *uint32
	IsActive *bool

	Source Source
}
