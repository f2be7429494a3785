package poller

import "tradesync/internal/transform"

// Visibility registration. The presentation layer calls these from whatever
// viewport-intersection mechanism it has; the coordinator only keeps integer
// reference counts so two rendered rows sharing one market do not unregister
// each other.

// RegisterMarket adds one visibility reference for a market.
func (c *Coordinator) RegisterMarket(marketID string) {
	if marketID == "" {
		return
	}
	c.mu.Lock()
	c.marketRefs[marketID]++
	c.mu.Unlock()
}

// UnregisterMarket drops one visibility reference for a market. The market
// leaves the medium tier only when its count reaches zero.
func (c *Coordinator) UnregisterMarket(marketID string) {
	c.mu.Lock()
	c.releaseMarketLocked(marketID)
	c.mu.Unlock()
}

func (c *Coordinator) releaseMarketLocked(marketID string) {
	count, ok := c.marketRefs[marketID]
	if !ok {
		return
	}
	if count <= 1 {
		delete(c.marketRefs, marketID)
		return
	}
	c.marketRefs[marketID] = count - 1
}

// RegisterToken adds one visibility reference for a token, fanning out a
// market reference for every market the token belongs to. The membership set
// is snapshotted on first registration so the matching unregister releases
// exactly the same references.
func (c *Coordinator) RegisterToken(tokenID string) {
	if tokenID == "" {
		return
	}
	tok, _ := c.store.GetToken(tokenID)

	c.mu.Lock()
	c.tokenRefs[tokenID]++
	if c.tokenRefs[tokenID] == 1 {
		members := make(map[string]transform.Role, len(tok.BaseMarkets)+len(tok.QuoteMarkets))
		for _, marketID := range tok.BaseMarkets {
			members[marketID] = transform.RoleBase
		}
		for _, marketID := range tok.QuoteMarkets {
			if _, exists := members[marketID]; !exists {
				members[marketID] = transform.RoleQuote
			}
		}
		c.tokenFan[tokenID] = members
		for marketID := range members {
			c.marketRefs[marketID]++
		}
	}
	c.mu.Unlock()
}

// UnregisterToken drops one visibility reference for a token, releasing its
// fanned-out market references when the count reaches zero.
func (c *Coordinator) UnregisterToken(tokenID string) {
	c.mu.Lock()
	count, ok := c.tokenRefs[tokenID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if count > 1 {
		c.tokenRefs[tokenID] = count - 1
		c.mu.Unlock()
		return
	}
	delete(c.tokenRefs, tokenID)
	members := c.tokenFan[tokenID]
	delete(c.tokenFan, tokenID)
	for marketID := range members {
		c.releaseMarketLocked(marketID)
	}
	c.mu.Unlock()
}

// VisibleMarkets reports the current market reference counts. Intended for
// diagnostics.
func (c *Coordinator) VisibleMarkets() map[string]int {
	c.mu.Lock()
	out := make(map[string]int, len(c.marketRefs))
	for id, count := range c.marketRefs {
		out[id] = count
	}
	c.mu.Unlock()
	return out
}
