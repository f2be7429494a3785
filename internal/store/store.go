package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradesync/internal/model"
)

// Kind identifies which entity map an update touched.
type Kind uint8

const (
	KindToken Kind = iota + 1
	KindMarket
	KindPool
	KindUserMarketData
)

// Update is delivered to subscribers after an upsert commits.
type Update struct {
	Kind Kind
	ID   string
}

// Store is the normalized entity cache shared by every polling tier. Every
// upsert is a partial merge: defaults, then the stored record, then the
// incoming patch. Records are stored by value, so readers always see a
// consistent copy; slices inside a record are replaced wholesale by patches
// and must not be mutated by callers.
type Store struct {
	mu       sync.RWMutex
	tokens   map[string]model.Token
	markets  map[string]model.Market
	pools    map[string]model.Pool
	userData map[string]model.UserMarketData
	bySymbol map[string]string

	subMu sync.RWMutex
	subs  []func(Update)

	logger *zap.Logger
	now    func() time.Time
}

// New builds an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		tokens:   make(map[string]model.Token),
		markets:  make(map[string]model.Market),
		pools:    make(map[string]model.Pool),
		userData: make(map[string]model.UserMarketData),
		bySymbol: make(map[string]string),
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers a callback invoked synchronously after each committed
// upsert. Callbacks must not write back into the store.
func (s *Store) Subscribe(fn func(Update)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *Store) notify(u Update) {
	s.subMu.RLock()
	subs := s.subs
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(u)
	}
}

// UpsertToken merges a partial token update. Unknown tokens are created
// lazily with defaults; omitted fields keep their stored value. A stored
// non-zero price is kept when its source outranks the incoming one.
func (s *Store) UpsertToken(patch model.TokenPatch) {
	if patch.CanisterID == "" {
		return
	}
	s.mu.Lock()
	s.upsertTokenLocked(patch)
	s.mu.Unlock()
	s.notify(Update{Kind: KindToken, ID: patch.CanisterID})
}

// UpsertTokens applies a batch of token patches.
func (s *Store) UpsertTokens(patches []model.TokenPatch) {
	for _, patch := range patches {
		s.UpsertToken(patch)
	}
}

func (s *Store) upsertTokenLocked(patch model.TokenPatch) {
	tok, ok := s.tokens[patch.CanisterID]
	if !ok {
		tok = defaultToken(patch.CanisterID)
	}
	applyTokenPatch(&tok, patch, s.now())
	tok.DisplaySymbol, tok.DisplayName = displayFields(tok.Symbol, tok.Name)
	tok.LastUpdatedAt = s.now()
	s.tokens[patch.CanisterID] = tok
	s.reindexSymbolsLocked()
}

func defaultToken(id string) model.Token {
	return model.Token{CanisterID: id, Decimals: 8}
}

func applyTokenPatch(tok *model.Token, p model.TokenPatch, now time.Time) {
	if p.Symbol != nil {
		tok.Symbol = *p.Symbol
	}
	if p.Name != nil {
		tok.Name = *p.Name
	}
	if p.Decimals != nil {
		tok.Decimals = *p.Decimals
	}
	if p.FeeE6 != nil {
		tok.FeeE6 = *p.FeeE6
	}
	if p.Logo != nil {
		tok.Logo = *p.Logo
	}
	// A zero incoming price defers to whatever the store holds; a non-zero
	// one is dropped when the stored price's source outranks the patch.
	if p.PriceUsdE12 != nil && *p.PriceUsdE12 != 0 {
		if tok.PriceUsdE12 == 0 || !tok.PriceSource.Outranks(p.PriceSource) {
			tok.PriceUsdE12 = *p.PriceUsdE12
			tok.PriceSource = p.PriceSource
			tok.PriceUpdatedAt = now
		}
	}
	if p.PriceChange24hBps != nil {
		tok.PriceChange24hBps = *p.PriceChange24hBps
	}
	if p.Volume24hE6 != nil {
		tok.Volume24hE6 = *p.Volume24hE6
	}
	if p.Volume7dE6 != nil {
		tok.Volume7dE6 = *p.Volume7dE6
	}
	if p.Volume30dE6 != nil {
		tok.Volume30dE6 = *p.Volume30dE6
	}
	if p.TvlE6 != nil {
		tok.TvlE6 = *p.TvlE6
	}
	if p.TotalSupplyE6 != nil {
		tok.TotalSupplyE6 = *p.TotalSupplyE6
	}
	if p.BaseMarkets != nil {
		tok.BaseMarkets = append([]string(nil), (*p.BaseMarkets)...)
	}
	if p.QuoteMarkets != nil {
		tok.QuoteMarkets = append([]string(nil), (*p.QuoteMarkets)...)
	}
	if p.Source != model.SourceUnknown {
		tok.Source = p.Source
	}
}

func (s *Store) reindexSymbolsLocked() {
	index := make(map[string]string, len(s.tokens))
	for id, tok := range s.tokens {
		if tok.DisplaySymbol == "" {
			continue
		}
		index[tok.DisplaySymbol] = id
	}
	s.bySymbol = index
}

// UpsertMarket merges a partial market update and maintains the referenced
// tokens' back-reference lists. Back-reference bookkeeping creates missing
// tokens lazily but does not emit token updates.
func (s *Store) UpsertMarket(patch model.MarketPatch) {
	if patch.CanisterID == "" {
		return
	}
	s.mu.Lock()
	mkt, ok := s.markets[patch.CanisterID]
	if !ok {
		mkt = model.Market{CanisterID: patch.CanisterID, IsActive: true}
	}
	applyMarketPatch(&mkt, patch)
	mkt.LastUpdatedAt = s.now()
	s.markets[patch.CanisterID] = mkt
	if mkt.BaseToken != "" {
		s.addMarketRefLocked(mkt.BaseToken, mkt.CanisterID, true)
	}
	if mkt.QuoteToken != "" {
		s.addMarketRefLocked(mkt.QuoteToken, mkt.CanisterID, false)
	}
	s.mu.Unlock()
	s.notify(Update{Kind: KindMarket, ID: patch.CanisterID})
}

// UpsertMarkets applies a batch of market patches.
func (s *Store) UpsertMarkets(patches []model.MarketPatch) {
	for _, patch := range patches {
		s.UpsertMarket(patch)
	}
}

func applyMarketPatch(mkt *model.Market, p model.MarketPatch) {
	if p.Symbol != nil {
		mkt.Symbol = *p.Symbol
	}
	if p.BaseToken != nil {
		mkt.BaseToken = *p.BaseToken
	}
	if p.QuoteToken != nil {
		mkt.QuoteToken = *p.QuoteToken
	}
	if p.LastTick != nil {
		mkt.LastTick = *p.LastTick
	}
	if p.LastPriceE12 != nil {
		mkt.LastPriceE12 = *p.LastPriceE12
	}
	if p.SqrtPriceX64 != nil {
		mkt.SqrtPriceX64 = *p.SqrtPriceX64
	}
	if p.LiquidityE6 != nil {
		mkt.LiquidityE6 = *p.LiquidityE6
	}
	if p.Volume24hE6 != nil {
		mkt.Volume24hE6 = *p.Volume24hE6
	}
	if p.TvlE6 != nil {
		mkt.TvlE6 = *p.TvlE6
	}
	if p.PriceChange24hBps != nil {
		mkt.PriceChange24hBps = *p.PriceChange24hBps
	}
	if p.FeePips != nil {
		mkt.FeePips = *p.FeePips
	}
	if p.IsActive != nil {
		mkt.IsActive = *p.IsActive
	}
	if p.Source != model.SourceUnknown {
		mkt.Source = p.Source
	}
}

func (s *Store) addMarketRefLocked(tokenID, marketID string, base bool) {
	tok, ok := s.tokens[tokenID]
	if !ok {
		tok = defaultToken(tokenID)
		tok.LastUpdatedAt = s.now()
	}
	if base {
		tok.BaseMarkets = appendUnique(tok.BaseMarkets, marketID)
	} else {
		tok.QuoteMarkets = appendUnique(tok.QuoteMarkets, marketID)
	}
	s.tokens[tokenID] = tok
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

// UpsertPool merges a partial pool update.
func (s *Store) UpsertPool(patch model.PoolPatch) {
	if patch.MarketID == "" {
		return
	}
	id := model.PoolID(patch.MarketID, patch.FeePips)
	s.mu.Lock()
	pool, ok := s.pools[id]
	if !ok {
		pool = model.Pool{ID: id, MarketID: patch.MarketID, FeePips: patch.FeePips}
	}
	applyPoolPatch(&pool, patch)
	pool.LastUpdatedAt = s.now()
	s.pools[id] = pool
	s.mu.Unlock()
	s.notify(Update{Kind: KindPool, ID: id})
}

// UpsertPools applies a batch of pool patches.
func (s *Store) UpsertPools(patches []model.PoolPatch) {
	for _, patch := range patches {
		s.UpsertPool(patch)
	}
}

func applyPoolPatch(pool *model.Pool, p model.PoolPatch) {
	if p.LiquidityE6 != nil {
		pool.LiquidityE6 = *p.LiquidityE6
	}
	if p.TvlE6 != nil {
		pool.TvlE6 = *p.TvlE6
	}
	if p.Volume24hE6 != nil {
		pool.Volume24hE6 = *p.Volume24hE6
	}
	if p.Volume7dE6 != nil {
		pool.Volume7dE6 = *p.Volume7dE6
	}
	if p.Fees24hE6 != nil {
		pool.Fees24hE6 = *p.Fees24hE6
	}
	if p.AprBps != nil {
		pool.AprBps = *p.AprBps
	}
	if p.BaseReserveE6 != nil {
		pool.BaseReserveE6 = *p.BaseReserveE6
	}
	if p.QuoteReserveE6 != nil {
		pool.QuoteReserveE6 = *p.QuoteReserveE6
	}
	if p.Source != model.SourceUnknown {
		pool.Source = p.Source
	}
}

// UpsertUserMarketData merges the current user's state for one market and
// recomputes the derived aggregates.
func (s *Store) UpsertUserMarketData(patch model.UserMarketDataPatch) {
	if patch.MarketID == "" {
		return
	}
	s.mu.Lock()
	data, ok := s.userData[patch.MarketID]
	if !ok {
		data = model.UserMarketData{MarketID: patch.MarketID}
	}
	applyUserPatch(&data, patch)
	recomputeUserAggregates(&data)
	data.LastUpdatedAt = s.now()
	s.userData[patch.MarketID] = data
	s.mu.Unlock()
	s.notify(Update{Kind: KindUserMarketData, ID: patch.MarketID})
}

func applyUserPatch(data *model.UserMarketData, p model.UserMarketDataPatch) {
	if p.Orders != nil {
		data.Orders = append([]model.OpenOrder(nil), (*p.Orders)...)
	}
	if p.Triggers != nil {
		data.Triggers = append([]model.OpenTrigger(nil), (*p.Triggers)...)
	}
	if p.Positions != nil {
		data.Positions = append([]model.Position(nil), (*p.Positions)...)
	}
	if p.Balances != nil {
		data.Balances = *p.Balances
	}
	if p.UncollectedFeesBaseE6 != nil {
		data.UncollectedFeesBaseE6 = *p.UncollectedFeesBaseE6
	}
	if p.UncollectedFeesQuoteE6 != nil {
		data.UncollectedFeesQuoteE6 = *p.UncollectedFeesQuoteE6
	}
	if p.Source != model.SourceUnknown {
		data.Source = p.Source
	}
}

func recomputeUserAggregates(data *model.UserMarketData) {
	var totalValue, weightedYield int64
	for _, pos := range data.Positions {
		totalValue += pos.ValueE6
		weightedYield += pos.ValueE6 * pos.YieldBps
	}
	data.TotalValueE6 = totalValue
	data.TotalFeesE6 = data.UncollectedFeesBaseE6 + data.UncollectedFeesQuoteE6
	if totalValue > 0 {
		data.AvgYieldBps = weightedYield / totalValue
	} else {
		data.AvgYieldBps = 0
	}
}

// GetToken returns the token by canister id.
func (s *Store) GetToken(id string) (model.Token, bool) {
	s.mu.RLock()
	tok, ok := s.tokens[id]
	s.mu.RUnlock()
	return tok, ok
}

// GetTokens returns the known tokens among ids, preserving order.
func (s *Store) GetTokens(ids []string) []model.Token {
	out := make([]model.Token, 0, len(ids))
	s.mu.RLock()
	for _, id := range ids {
		if tok, ok := s.tokens[id]; ok {
			out = append(out, tok)
		}
	}
	s.mu.RUnlock()
	return out
}

// HasToken reports whether a token exists.
func (s *Store) HasToken(id string) bool {
	s.mu.RLock()
	_, ok := s.tokens[id]
	s.mu.RUnlock()
	return ok
}

// TokenBySymbol resolves a token through the normalized symbol index.
func (s *Store) TokenBySymbol(symbol string) (model.Token, bool) {
	normalized, _ := NormalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySymbol[normalized]
	if !ok {
		return model.Token{}, false
	}
	tok, ok := s.tokens[id]
	return tok, ok
}

// Tokens lists every token sorted by display symbol. The list is recomputed
// on every call.
func (s *Store) Tokens() []model.Token {
	s.mu.RLock()
	out := make([]model.Token, 0, len(s.tokens))
	for _, tok := range s.tokens {
		out = append(out, tok)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplaySymbol != out[j].DisplaySymbol {
			return out[i].DisplaySymbol < out[j].DisplaySymbol
		}
		return out[i].CanisterID < out[j].CanisterID
	})
	return out
}

// GetMarket returns the market by canister id.
func (s *Store) GetMarket(id string) (model.Market, bool) {
	s.mu.RLock()
	mkt, ok := s.markets[id]
	s.mu.RUnlock()
	return mkt, ok
}

// GetMarkets returns the known markets among ids, preserving order.
func (s *Store) GetMarkets(ids []string) []model.Market {
	out := make([]model.Market, 0, len(ids))
	s.mu.RLock()
	for _, id := range ids {
		if mkt, ok := s.markets[id]; ok {
			out = append(out, mkt)
		}
	}
	s.mu.RUnlock()
	return out
}

// Markets lists every market sorted by canister id.
func (s *Store) Markets() []model.Market {
	s.mu.RLock()
	out := make([]model.Market, 0, len(s.markets))
	for _, mkt := range s.markets {
		out = append(out, mkt)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CanisterID < out[j].CanisterID })
	return out
}

// GetPool returns the pool by its "<market>:<feePips>" id.
func (s *Store) GetPool(id string) (model.Pool, bool) {
	s.mu.RLock()
	pool, ok := s.pools[id]
	s.mu.RUnlock()
	return pool, ok
}

// GetUserMarketData returns the current user's record for one market.
func (s *Store) GetUserMarketData(marketID string) (model.UserMarketData, bool) {
	s.mu.RLock()
	data, ok := s.userData[marketID]
	s.mu.RUnlock()
	return data, ok
}

// UserMarketIDs lists every market holding user data, sorted.
func (s *Store) UserMarketIDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.userData))
	for id := range s.userData {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// ClearUserMarketData drops the user record for one market.
func (s *Store) ClearUserMarketData(marketID string) {
	s.mu.Lock()
	delete(s.userData, marketID)
	s.mu.Unlock()
}

// ClearUserData drops every user record, used on identity logout or switch.
func (s *Store) ClearUserData() {
	s.mu.Lock()
	s.userData = make(map[string]model.UserMarketData)
	s.mu.Unlock()
	s.logger.Debug("user data cleared")
}

// PruneStale removes entities whose last update is older than ttl and
// returns how many were dropped.
func (s *Store) PruneStale(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)
	removed := 0

	s.mu.Lock()
	for id, tok := range s.tokens {
		if tok.LastUpdatedAt.Before(cutoff) {
			delete(s.tokens, id)
			removed++
		}
	}
	for id, mkt := range s.markets {
		if mkt.LastUpdatedAt.Before(cutoff) {
			delete(s.markets, id)
			removed++
		}
	}
	for id, pool := range s.pools {
		if pool.LastUpdatedAt.Before(cutoff) {
			delete(s.pools, id)
			removed++
		}
	}
	for id, data := range s.userData {
		if data.LastUpdatedAt.Before(cutoff) {
			delete(s.userData, id)
			removed++
		}
	}
	if removed > 0 {
		s.reindexSymbolsLocked()
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("pruned stale entities", zap.Int("removed", removed), zap.Duration("ttl", ttl))
	}
	return removed
}
