package model

import "time"

// OpenOrder is one resting order of the current user.
type OpenOrder struct {
	ID       uint64 `json:"id"`
	Side     string `json:"side"` // "buy" or "sell"
	PriceE12 int64  `json:"price_e12"`
	AmountE6 int64  `json:"amount_e6"`
}

// OpenTrigger is one pending stop/limit trigger of the current user.
type OpenTrigger struct {
	ID       uint64 `json:"id"`
	Kind     string `json:"kind"` // "stop" or "take_profit"
	PriceE12 int64  `json:"price_e12"`
	AmountE6 int64  `json:"amount_e6"`
}

// Position is one liquidity position of the current user.
type Position struct {
	ID          uint64 `json:"id"`
	LowTick     int32  `json:"low_tick"`
	HighTick    int32  `json:"high_tick"`
	LiquidityE6 int64  `json:"liquidity_e6"`
	ValueE6     int64  `json:"value_e6"`
	YieldBps    int64  `json:"yield_bps"`
}

// BalanceBreakdown splits the user's base and quote funds by what locks them.
type BalanceBreakdown struct {
	AvailableBaseE6  int64 `json:"available_base_e6"`
	AvailableQuoteE6 int64 `json:"available_quote_e6"`
	OrdersBaseE6     int64 `json:"orders_base_e6"`
	OrdersQuoteE6    int64 `json:"orders_quote_e6"`
	TriggersBaseE6   int64 `json:"triggers_base_e6"`
	TriggersQuoteE6  int64 `json:"triggers_quote_e6"`
	PositionsBaseE6  int64 `json:"positions_base_e6"`
	PositionsQuoteE6 int64 `json:"positions_quote_e6"`
}

// UserMarketData holds the current user's state in one market. There is at
// most one live identity at a time; switching identity clears every record.
type UserMarketData struct {
	MarketID string `json:"market_id"`

	Orders    []OpenOrder      `json:"orders,omitempty"`
	Triggers  []OpenTrigger    `json:"triggers,omitempty"`
	Positions []Position       `json:"positions,omitempty"`
	Balances  BalanceBreakdown `json:"balances"`

	UncollectedFeesBaseE6  int64 `json:"uncollected_fees_base_e6"`
	UncollectedFeesQuoteE6 int64 `json:"uncollected_fees_quote_e6"`

	// Derived on every upsert, never patched directly.
	TotalValueE6 int64 `json:"total_value_e6"`
	TotalFeesE6  int64 `json:"total_fees_e6"`
	AvgYieldBps  int64 `json:"avg_yield_bps"`

	Source        Source    `json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// UserMarketDataPatch is a partial user-data update. Nil fields keep their
// stored value; derived aggregates are recomputed after the merge.
type UserMarketDataPatch struct {
	MarketID string

	Orders    *[]OpenOrder
	Triggers  *[]OpenTrigger
	Positions *[]Position
	Balances  *BalanceBreakdown

	UncollectedFeesBaseE6  *int64
	UncollectedFeesQuoteE6 *int64

	Source Source
}
