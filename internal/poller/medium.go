package poller

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"tradesync/internal/backend"
	"tradesync/internal/transform"
)

// tickMedium refreshes every visible market from the bulk indexer. Fetches
// run in parallel with per-market failure isolation; market and pool patches
// land immediately, token contributions are aggregated once all fetches
// settle.
func (c *Coordinator) tickMedium() {
	if !c.mediumBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.mediumBusy.Store(false)

	if c.pageHidden() {
		return
	}

	c.mu.Lock()
	markets := make([]string, 0, len(c.marketRefs))
	for id := range c.marketRefs {
		markets = append(markets, id)
	}
	fan := make(map[string]map[string]transform.Role, len(c.tokenFan))
	for tokenID, members := range c.tokenFan {
		copied := make(map[string]transform.Role, len(members))
		for marketID, role := range members {
			copied[marketID] = role
		}
		fan[tokenID] = copied
	}
	c.mu.Unlock()

	if len(markets) == 0 {
		return
	}
	sort.Strings(markets)

	ctx, cancel := c.fetchContext()
	defer cancel()

	results := make([]*backend.IndexSnapshot, len(markets))
	var wg sync.WaitGroup
	for i, marketID := range markets {
		wg.Add(1)
		go func(i int, marketID string) {
			defer wg.Done()
			snap, err := c.client.IndexSnapshot(ctx, marketID)
			if err != nil {
				c.logger.Warn("index snapshot failed", zap.String("market", marketID), zap.Error(err))
				return
			}
			marketPatch, poolPatches := transform.MarketUpserts(snap)
			c.store.UpsertMarket(marketPatch)
			c.store.UpsertPools(poolPatches)
			results[i] = snap
		}(i, marketID)
	}
	wg.Wait()

	byMarket := make(map[string]*backend.IndexSnapshot, len(markets))
	fetched := 0
	for i, marketID := range markets {
		if results[i] != nil {
			byMarket[marketID] = results[i]
			fetched++
		}
	}

	for tokenID, members := range fan {
		contribs := make([]transform.Contribution, 0, len(members))
		for marketID, role := range members {
			if snap, ok := byMarket[marketID]; ok {
				contribs = append(contribs, transform.TokenContribution(snap, role))
			}
		}
		if len(contribs) == 0 {
			continue
		}
		c.store.UpsertToken(transform.AggregateContributions(tokenID, contribs))
	}

	c.logger.Debug("medium tick complete",
		zap.Int("markets", len(markets)),
		zap.Int("fetched", fetched),
		zap.Int("tokens", len(fan)),
	)
}
