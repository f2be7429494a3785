package model

import (
	"fmt"
	"time"
)

// Pool is one fee tier of a market.
type Pool struct {
	ID       string `json:"id"` // "<market>:<feePips>"
	MarketID string `json:"market_id"`
	FeePips  uint32 `json:"fee_pips"`

	LiquidityE6 int64 `json:"liquidity_e6"`
	TvlE6       int64 `json:"tvl_e6"`
	Volume24hE6 int64 `json:"volume_24h_e6"`
	Volume7dE6  int64 `json:"volume_7d_e6"`
	Fees24hE6   int64 `json:"fees_24h_e6"`
	AprBps      int64 `json:"apr_bps"`

	BaseReserveE6  int64 `json:"base_reserve_e6,omitempty"`
	QuoteReserveE6 int64 `json:"quote_reserve_e6,omitempty"`

	Source        Source    `json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// PoolID builds the canonical pool identity for a market fee tier.
func PoolID(marketID string, feePips uint32) string {
	return fmt.Sprintf("%s:%d", marketID, feePips)
}

// PoolPatch is a partial pool update. Nil fields keep their stored value.
type PoolPatch struct {
	MarketID string
	FeePips  uint32

	LiquidityE6 *int64
	TvlE6       *int64
	Volume24hE6 *int64
	Volume7dE6  *int64
	Fees24hE6   *int64
	AprBps      *int64

	BaseReserveE6  *int64
	QuoteReserveE6 *int64

	Source Source
}
