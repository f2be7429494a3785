package poller

import (
	"context"

	"go.uber.org/zap"

	"tradesync/internal/backend"
	"tradesync/internal/model"
	"tradesync/internal/transform"
)

// tickFast refreshes the one actively traded market. It fetches the market's
// version vector and hydrates only the subsystems whose counters moved since
// the last successful refresh.
func (c *Coordinator) tickFast() {
	if !c.fastBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.fastBusy.Store(false)

	if c.pageHidden() {
		return
	}

	c.mu.Lock()
	market := c.activeMarket
	cached := c.fastCache
	principal := c.principal
	c.mu.Unlock()
	if market == "" {
		return
	}

	ctx, cancel := c.fetchContext()
	defer cancel()

	vv, err := c.client.MarketVersions(ctx, market)
	if err != nil {
		c.logger.Warn("version check failed", zap.String("market", market), zap.Error(err))
		return
	}
	if cached.known && vv.Equal(cached.vv) {
		return
	}

	next := c.refreshChanged(ctx, market, vv, cached, principal)
	c.commitFastCache(market, next)
}

// refreshChanged hydrates every subsystem whose counter in vv differs from
// the cached value and returns the vector of counters that were actually
// applied. Counters advance only after their fetch succeeds, so a transient
// failure is retried on the next tick.
func (c *Coordinator) refreshChanged(ctx context.Context, market string, vv model.VersionVector, cached versionCache, principal string) model.VersionVector {
	next := cached.vv

	platformChanged := !cached.known || vv.Platform != cached.vv.Platform
	orderbookChanged := !cached.known || vv.Orderbook != cached.vv.Orderbook
	candleChanged := !cached.known || vv.Candle != cached.vv.Candle
	userChanged := !cached.known || vv.User != cached.vv.User

	if platformChanged {
		// The full platform snapshot carries the book and recent trades,
		// so a separate orderbook fetch would be redundant.
		if c.hydratePlatform(ctx, market) {
			next.Platform = vv.Platform
			next.Orderbook = vv.Orderbook
		}
	} else if orderbookChanged {
		if c.hydrateOrderbook(ctx, market) {
			next.Orderbook = vv.Orderbook
		}
	}
	if candleChanged {
		if c.hydrateCandles(ctx, market) {
			next.Candle = vv.Candle
		}
	}
	// With no identity there is nothing to fetch. The counter stays pending
	// so signing in picks up the user's state on the next tick.
	if userChanged && principal != "" {
		if c.hydrateUser(ctx, market, principal) {
			next.User = vv.User
		}
	}
	return next
}

func (c *Coordinator) hydratePlatform(ctx context.Context, market string) bool {
	snap, err := c.client.PlatformSnapshot(ctx, market)
	if err != nil {
		c.logger.Warn("platform hydration failed", zap.String("market", market), zap.Error(err))
		return false
	}
	c.store.UpsertMarket(transform.PlatformMarketPatch(snap))
	c.deriveBasePrice(snap)
	if snap.Book != nil && c.handlers.Orderbook != nil {
		c.handlers.Orderbook(snap.Book)
	}
	if len(snap.Trades) > 0 && c.handlers.Trades != nil {
		c.handlers.Trades(snap.Trades)
	}
	return true
}

// deriveBasePrice recomputes the base token's USD price from the market tick
// and the quote token's known price, so both sides of the pair stay
// consistent between oracle refreshes.
func (c *Coordinator) deriveBasePrice(snap *backend.PlatformSnapshot) {
	baseID := snap.Stats.BaseToken
	quoteID := snap.Stats.QuoteToken
	if baseID == "" || quoteID == "" {
		return
	}
	baseTok, okBase := c.store.GetToken(baseID)
	quoteTok, okQuote := c.store.GetToken(quoteID)
	if !okBase || !okQuote || quoteTok.PriceUsdE12 == 0 {
		return
	}
	price := transform.DerivePriceFromTick(snap.Stats.LastTick, baseTok.Decimals, quoteTok.Decimals, quoteTok.PriceUsdE12)
	if price == 0 {
		return
	}
	c.store.UpsertToken(model.TokenPatch{
		CanisterID:  baseID,
		PriceUsdE12: &price,
		PriceSource: model.SourceMarket,
		Source:      model.SourceMarket,
	})
}

func (c *Coordinator) hydrateOrderbook(ctx context.Context, market string) bool {
	book, err := c.client.OrderbookSnapshot(ctx, market)
	if err != nil {
		c.logger.Warn("orderbook hydration failed", zap.String("market", market), zap.Error(err))
		return false
	}
	if c.handlers.Orderbook != nil {
		c.handlers.Orderbook(book)
	}
	return true
}

func (c *Coordinator) hydrateCandles(ctx context.Context, market string) bool {
	set, err := c.client.CandleSnapshot(ctx, market)
	if err != nil {
		c.logger.Warn("candle hydration failed", zap.String("market", market), zap.Error(err))
		return false
	}
	if c.handlers.Candles != nil {
		c.handlers.Candles(set)
	}
	return true
}

func (c *Coordinator) hydrateUser(ctx context.Context, market, principal string) bool {
	snap, err := c.client.UserSnapshot(ctx, market, principal)
	if err != nil {
		c.logger.Warn("user hydration failed", zap.String("market", market), zap.Error(err))
		return false
	}
	c.store.UpsertUserMarketData(transform.UserPatch(snap))
	return true
}
