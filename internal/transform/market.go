// Package transform converts raw backend snapshots into entity-store patches
// and aggregates per-market token contributions. Everything here is pure and
// stateless.
package transform

import (
	"tradesync/internal/backend"
	"tradesync/internal/model"
)

// MarketUpserts converts a bulk index snapshot into one market patch and one
// pool patch per fee tier, all tagged as direct-from-market data.
func MarketUpserts(snap *backend.IndexSnapshot) (model.MarketPatch, []model.PoolPatch) {
	market := model.MarketPatch{
		CanisterID:        snap.MarketID,
		LastTick:          i32p(snap.LastTick),
		LastPriceE12:      i64p(snap.LastPriceE12),
		PriceChange24hBps: i64p(snap.PriceChange24hBps),
		Volume24hE6:       i64p(snap.Volume24hE6),
		TvlE6:             i64p(snap.TvlE6),
		LiquidityE6:       i64p(snap.LiquidityE6),
		Source:            model.SourceMarket,
	}
	if snap.BaseToken != "" {
		market.BaseToken = strp(snap.BaseToken)
	}
	if snap.QuoteToken != "" {
		market.QuoteToken = strp(snap.QuoteToken)
	}

	pools := make([]model.PoolPatch, 0, len(snap.Pools))
	for _, tier := range snap.Pools {
		pools = append(pools, model.PoolPatch{
			MarketID:       snap.MarketID,
			FeePips:        tier.FeePips,
			LiquidityE6:    i64p(tier.LiquidityE6),
			TvlE6:          i64p(tier.TvlE6),
			Volume24hE6:    i64p(tier.Volume24hE6),
			Volume7dE6:     i64p(tier.Volume7dE6),
			Fees24hE6:      i64p(tier.Fees24hE6),
			AprBps:         i64p(tier.AprBps),
			BaseReserveE6:  i64p(tier.BaseReserveE6),
			QuoteReserveE6: i64p(tier.QuoteReserveE6),
			Source:         model.SourceMarket,
		})
	}
	return market, pools
}

// PlatformMarketPatch converts the stats slice of a full platform snapshot
// into a market patch.
func PlatformMarketPatch(snap *backend.PlatformSnapshot) model.MarketPatch {
	stats := snap.Stats
	patch := model.MarketPatch{
		CanisterID:        snap.MarketID,
		LastTick:          i32p(stats.LastTick),
		LastPriceE12:      i64p(stats.LastPriceE12),
		SqrtPriceX64:      u64p(stats.SqrtPriceX64),
		LiquidityE6:       i64p(stats.LiquidityE6),
		Volume24hE6:       i64p(stats.Volume24hE6),
		TvlE6:             i64p(stats.TvlE6),
		PriceChange24hBps: i64p(stats.PriceChange24hBps),
		FeePips:           u32p(stats.FeePips),
		IsActive:          boolp(stats.IsActive),
		Source:            model.SourceMarket,
	}
	if stats.Symbol != "" {
		patch.Symbol = strp(stats.Symbol)
	}
	if stats.BaseToken != "" {
		patch.BaseToken = strp(stats.BaseToken)
	}
	if stats.QuoteToken != "" {
		patch.QuoteToken = strp(stats.QuoteToken)
	}
	return patch
}

// UserPatch converts a user snapshot into a user-data patch.
func UserPatch(snap *backend.UserSnapshot) model.UserMarketDataPatch {
	orders := append([]model.OpenOrder(nil), snap.Orders...)
	triggers := append([]model.OpenTrigger(nil), snap.Triggers...)
	positions := append([]model.Position(nil), snap.Positions...)
	balances := snap.Balances
	return model.UserMarketDataPatch{
		MarketID:               snap.MarketID,
		Orders:                 &orders,
		Triggers:               &triggers,
		Positions:              &positions,
		Balances:               &balances,
		UncollectedFeesBaseE6:  i64p(snap.UncollectedFeesBaseE6),
		UncollectedFeesQuoteE6: i64p(snap.UncollectedFeesQuoteE6),
		Source:                 model.SourceMarket,
	}
}

func i64p(v int64) *int64    { return &v }
func i32p(v int32) *int32    { return &v }
func u32p(v uint32) *uint32  { return &v }
func u64p(v uint64) *uint64  { return &v }
func strp(v string) *string  { return &v }
func boolp(v bool) *bool     { return &v }
