package poller

import "go.uber.org/zap"

// tickSlow walks every market holding user data except the fast tier's active
// one, refetching user state only where the user counter moved. It also runs
// the store's stale-entry sweep.
func (c *Coordinator) tickSlow() {
	if !c.slowBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.slowBusy.Store(false)

	if c.pageHidden() {
		return
	}

	if c.cfg.PruneTTL > 0 {
		c.store.PruneStale(c.cfg.PruneTTL)
	}

	c.mu.Lock()
	principal := c.principal
	active := c.activeMarket
	c.mu.Unlock()
	if principal == "" {
		return
	}

	ctx, cancel := c.fetchContext()
	defer cancel()

	for _, marketID := range c.store.UserMarketIDs() {
		if marketID == active {
			continue
		}

		vv, err := c.client.MarketVersions(ctx, marketID)
		if err != nil {
			c.logger.Warn("user version check failed", zap.String("market", marketID), zap.Error(err))
			continue
		}

		c.mu.Lock()
		last, known := c.userVersions[marketID]
		c.mu.Unlock()
		if known && last == vv.User {
			continue
		}

		if !c.hydrateUser(ctx, marketID, principal) {
			continue
		}
		c.mu.Lock()
		c.userVersions[marketID] = vv.User
		c.mu.Unlock()
	}
}
