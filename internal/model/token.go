package model

import "time"

// Token is the normalized record for one ledger token.
type Token struct {
	CanisterID    string `json:"canister_id"`
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"display_symbol"`
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Decimals      uint8  `json:"decimals"`
	FeeE6         int64  `json:"fee_e6"`
	Logo          string `json:"logo,omitempty"`

	PriceUsdE12       int64     `json:"price_usd_e12"`
	PriceSource       Source    `json:"price_source"`
	PriceUpdatedAt    time.Time `json:"price_updated_at"`
	PriceChange24hBps int64     `json:"price_change_24h_bps"`

	Volume24hE6   int64 `json:"volume_24h_e6"`
	Volume7dE6    int64 `json:"volume_7d_e6"`
	Volume30dE6   int64 `json:"volume_30d_e6"`
	TvlE6         int64 `json:"tvl_e6"`
	TotalSupplyE6 int64 `json:"total_supply_e6,omitempty"`

	// Markets where this token is the base or quote side, by canister id.
	BaseMarkets  []string `json:"base_markets,omitempty"`
	QuoteMarkets []string `json:"quote_markets,omitempty"`

	Source        Source    `json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// TokenPatch is a partial token update. Nil fields keep their stored value.
// PriceSource qualifies PriceUsdE12 and is subject to the authority rule.
type TokenPatch struct {
	CanisterID string

	Symbol   *string
	Name     *string
	Decimals *uint8
	FeeE6    *int64
	Logo     *string

	PriceUsdE12       *int64
	PriceSource       Source
	PriceChange24hBps *int64

	Volume24hE6   *int64
	Volume7dE6    *int64
	Volume30dE6   *int64
	TvlE6         *int64
	TotalSupplyE6 *int64

	BaseMarkets  *[]string
	QuoteMarkets *[]string

	Source Source
}
