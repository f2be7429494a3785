package backend

import (
	"context"
	"time"

	"tradesync/internal/model"
)

// Client is the remote surface the coordinator polls. Each market is an
// independently-owned process; IndexSnapshot comes from the bulk indexer.
// Every call is idempotent and individually retryable.
type Client interface {
	// MarketVersions fetches the four subsystem counters for one market.
	MarketVersions(ctx context.Context, marketID string) (model.VersionVector, error)
	// PlatformSnapshot fetches the full market state including order book
	// and recent trades.
	PlatformSnapshot(ctx context.Context, marketID string) (*PlatformSnapshot, error)
	// OrderbookSnapshot fetches only the order book.
	OrderbookSnapshot(ctx context.Context, marketID string) (*Orderbook, error)
	// CandleSnapshot fetches only the chart candles.
	CandleSnapshot(ctx context.Context, marketID string) (*CandleSet, error)
	// UserSnapshot fetches the given principal's state in one market.
	UserSnapshot(ctx context.Context, marketID, principal string) (*UserSnapshot, error)
	// IndexSnapshot fetches the bulk indexer's aggregate view of one market.
	IndexSnapshot(ctx context.Context, marketID string) (*IndexSnapshot, error)
}

// PriceLevel is one side-agnostic order book level.
type PriceLevel struct {
	PriceE12 int64 `json:"price_e12"`
	AmountE6 int64 `json:"amount_e6"`
}

// Orderbook is a point-in-time book snapshot.
type Orderbook struct {
	MarketID string       `json:"market_id"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
	Seq      uint64       `json:"seq"`
}

// Trade is one recent fill.
type Trade struct {
	ID       uint64    `json:"id"`
	PriceE12 int64     `json:"price_e12"`
	AmountE6 int64     `json:"amount_e6"`
	Side     string    `json:"side"`
	At       time.Time `json:"at"`
}

// Candle is one OHLCV bucket.
type Candle struct {
	Start    time.Time `json:"start"`
	OpenE12  int64     `json:"open_e12"`
	HighE12  int64     `json:"high_e12"`
	LowE12   int64     `json:"low_e12"`
	CloseE12 int64     `json:"close_e12"`
	VolumeE6 int64     `json:"volume_e6"`
}

// CandleSet is a chart refresh for one market and resolution.
type CandleSet struct {
	MarketID   string        `json:"market_id"`
	Resolution time.Duration `json:"resolution"`
	Candles    []Candle      `json:"candles"`
}

// MarketStats is the trading-state slice of a platform snapshot.
type MarketStats struct {
	Symbol            string `json:"symbol"`
	BaseToken         string `json:"base_token"`
	QuoteToken        string `json:"quote_token"`
	LastTick          int32  `json:"last_tick"`
	LastPriceE12      int64  `json:"last_price_e12"`
	SqrtPriceX64      uint64 `json:"sqrt_price_x64"`
	LiquidityE6       int64  `json:"liquidity_e6"`
	Volume24hE6       int64  `json:"volume_24h_e6"`
	TvlE6             int64  `json:"tvl_e6"`
	PriceChange24hBps int64  `json:"price_change_24h_bps"`
	FeePips           uint32 `json:"fee_pips"`
	IsActive          bool   `json:"is_active"`
}

// PlatformSnapshot is the full per-market refresh; it subsumes the order
// book and recent trades.
type PlatformSnapshot struct {
	MarketID string      `json:"market_id"`
	Stats    MarketStats `json:"stats"`
	Book     *Orderbook  `json:"book,omitempty"`
	Trades   []Trade     `json:"trades,omitempty"`
}

// UserSnapshot is the per-market user-data refresh.
type UserSnapshot struct {
	MarketID string `json:"market_id"`

	Orders    []model.OpenOrder      `json:"orders"`
	Triggers  []model.OpenTrigger    `json:"triggers"`
	Positions []model.Position       `json:"positions"`
	Balances  model.BalanceBreakdown `json:"balances"`

	UncollectedFeesBaseE6  int64 `json:"uncollected_fees_base_e6"`
	UncollectedFeesQuoteE6 int64 `json:"uncollected_fees_quote_e6"`
}

// PoolStats is one fee tier inside an index snapshot.
type PoolStats struct {
	FeePips        uint32 `json:"fee_pips"`
	LiquidityE6    int64  `json:"liquidity_e6"`
	TvlE6          int64  `json:"tvl_e6"`
	Volume24hE6    int64  `json:"volume_24h_e6"`
	Volume7dE6     int64  `json:"volume_7d_e6"`
	Fees24hE6      int64  `json:"fees_24h_e6"`
	AprBps         int64  `json:"apr_bps"`
	BaseReserveE6  int64  `json:"base_reserve_e6"`
	QuoteReserveE6 int64  `json:"quote_reserve_e6"`
}

// IndexSnapshot is the bulk indexer's aggregate view of one market.
type IndexSnapshot struct {
	MarketID   string `json:"market_id"`
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`

	LastTick          int32 `json:"last_tick"`
	LastPriceE12      int64 `json:"last_price_e12"`
	PriceChange24hBps int64 `json:"price_change_24h_bps"`

	Volume24hE6 int64 `json:"volume_24h_e6"`
	Volume7dE6  int64 `json:"volume_7d_e6"`
	Volume30dE6 int64 `json:"volume_30d_e6"`
	TvlE6       int64 `json:"tvl_e6"`
	LiquidityE6 int64 `json:"liquidity_e6"`

	Pools []PoolStats `json:"pools"`
}

// MutationResult is the version payload returned by user-initiated writes.
// Applying it to the coordinator shortcuts the next version check.
type MutationResult struct {
	MarketID string              `json:"market_id"`
	Versions model.VersionVector `json:"versions"`
}
