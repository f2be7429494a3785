package poller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tradesync/internal/backend"
	"tradesync/internal/model"
	"tradesync/internal/store"
)

// fakeClient scripts version vectors and snapshots per market and counts
// every call.
type fakeClient struct {
	mu sync.Mutex

	versions map[string]model.VersionVector
	index    map[string]*backend.IndexSnapshot

	versionErr  map[string]error
	platformErr map[string]error
	userErr     map[string]error
	indexErr    map[string]error

	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		versions:    make(map[string]model.VersionVector),
		index:       make(map[string]*backend.IndexSnapshot),
		versionErr:  make(map[string]error),
		platformErr: make(map[string]error),
		userErr:     make(map[string]error),
		indexErr:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (f *fakeClient) record(kind, marketID string) {
	f.calls[kind+":"+marketID]++
}

func (f *fakeClient) count(kind, marketID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind+":"+marketID]
}

func (f *fakeClient) setVersions(marketID string, vv model.VersionVector) {
	f.mu.Lock()
	f.versions[marketID] = vv
	f.mu.Unlock()
}

func (f *fakeClient) MarketVersions(_ context.Context, marketID string) (model.VersionVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("versions", marketID)
	if err := f.versionErr[marketID]; err != nil {
		return model.VersionVector{}, err
	}
	return f.versions[marketID], nil
}

func (f *fakeClient) PlatformSnapshot(_ context.Context, marketID string) (*backend.PlatformSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("platform", marketID)
	if err := f.platformErr[marketID]; err != nil {
		return nil, err
	}
	return &backend.PlatformSnapshot{MarketID: marketID}, nil
}

func (f *fakeClient) OrderbookSnapshot(_ context.Context, marketID string) (*backend.Orderbook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("orderbook", marketID)
	return &backend.Orderbook{MarketID: marketID}, nil
}

func (f *fakeClient) CandleSnapshot(_ context.Context, marketID string) (*backend.CandleSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("candles", marketID)
	return &backend.CandleSet{MarketID: marketID}, nil
}

func (f *fakeClient) UserSnapshot(_ context.Context, marketID, _ string) (*backend.UserSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("user", marketID)
	if err := f.userErr[marketID]; err != nil {
		return nil, err
	}
	return &backend.UserSnapshot{MarketID: marketID}, nil
}

func (f *fakeClient) IndexSnapshot(_ context.Context, marketID string) (*backend.IndexSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("index", marketID)
	if err := f.indexErr[marketID]; err != nil {
		return nil, err
	}
	if snap, ok := f.index[marketID]; ok {
		return snap, nil
	}
	return &backend.IndexSnapshot{MarketID: marketID}, nil
}

var _ backend.Client = (*fakeClient)(nil)

func newTestCoordinator(client backend.Client) (*Coordinator, *store.Store) {
	entityStore := store.New(nil)
	cfg := Config{
		FastInterval:   time.Hour,
		MediumInterval: time.Hour,
		SlowInterval:   time.Hour,
		FetchTimeout:   2 * time.Second,
	}
	return New(cfg, client, entityStore, Handlers{}, nil), entityStore
}

func (c *Coordinator) cachedVector() (model.VersionVector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fastCache.vv, c.fastCache.known
}

func TestFastTickUnknownSentinelFetchesAll(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")

	c.tickFast()

	if got := client.count("platform", "m1"); got != 1 {
		t.Fatalf("platform calls = %d, want 1", got)
	}
	if got := client.count("candles", "m1"); got != 1 {
		t.Fatalf("candle calls = %d, want 1", got)
	}
	// The platform snapshot subsumes the order book.
	if got := client.count("orderbook", "m1"); got != 0 {
		t.Fatalf("orderbook calls = %d, want 0", got)
	}
	// No identity, so no user fetch.
	if got := client.count("user", "m1"); got != 0 {
		t.Fatalf("user calls = %d, want 0", got)
	}

	// The user counter stays pending until an identity is set.
	vv, known := c.cachedVector()
	if !known || vv != (model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1}) {
		t.Fatalf("cached vector = %+v known=%v", vv, known)
	}
}

func TestFastTickUnchangedVectorNoHydration(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.tickFast()

	c.tickFast()

	if got := client.count("versions", "m1"); got != 2 {
		t.Fatalf("version checks = %d, want 2", got)
	}
	if got := client.count("platform", "m1"); got != 1 {
		t.Fatalf("platform calls = %d, want 1", got)
	}
	if got := client.count("candles", "m1"); got != 1 {
		t.Fatalf("candle calls = %d, want 1", got)
	}
}

func TestFastTickPlatformCounterOnly(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.tickFast()

	client.setVersions("m1", model.VersionVector{Platform: 2, Orderbook: 1, Candle: 1})
	c.tickFast()

	if got := client.count("platform", "m1"); got != 2 {
		t.Fatalf("platform calls = %d, want 2", got)
	}
	if got := client.count("orderbook", "m1"); got != 0 {
		t.Fatalf("orderbook calls = %d, want 0", got)
	}
	if got := client.count("candles", "m1"); got != 1 {
		t.Fatalf("candle calls = %d, want 1", got)
	}

	vv, _ := c.cachedVector()
	if vv != (model.VersionVector{Platform: 2, Orderbook: 1, Candle: 1}) {
		t.Fatalf("cached vector = %+v", vv)
	}
}

func TestFastTickOrderbookCounterOnly(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.tickFast()

	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 1})
	c.tickFast()

	if got := client.count("orderbook", "m1"); got != 1 {
		t.Fatalf("orderbook calls = %d, want 1", got)
	}
	if got := client.count("platform", "m1"); got != 1 {
		t.Fatalf("platform calls = %d, want 1", got)
	}
}

func TestFastTickUserCounterWithIdentity(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, entityStore := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	c.tickFast()
	if got := client.count("user", "m1"); got != 1 {
		t.Fatalf("user calls = %d, want 1", got)
	}

	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 2})
	c.tickFast()

	if got := client.count("user", "m1"); got != 2 {
		t.Fatalf("user calls = %d, want 2", got)
	}
	if got := client.count("platform", "m1"); got != 1 {
		t.Fatalf("platform calls = %d, want 1", got)
	}
	if _, ok := entityStore.GetUserMarketData("m1"); !ok {
		t.Fatalf("user data not stored")
	}
}

func TestFastTickFailedFetchRetries(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.tickFast()

	client.mu.Lock()
	client.platformErr["m1"] = fmt.Errorf("boom")
	client.mu.Unlock()
	client.setVersions("m1", model.VersionVector{Platform: 2, Orderbook: 1, Candle: 1, User: 1})
	c.tickFast()

	vv, _ := c.cachedVector()
	if vv.Platform != 1 {
		t.Fatalf("failed fetch advanced platform counter: %+v", vv)
	}

	client.mu.Lock()
	delete(client.platformErr, "m1")
	client.mu.Unlock()
	c.tickFast()

	if got := client.count("platform", "m1"); got != 3 {
		t.Fatalf("platform calls = %d, want 3", got)
	}
	vv, _ = c.cachedVector()
	if vv.Platform != 2 {
		t.Fatalf("retry did not advance counter: %+v", vv)
	}
}

func TestLoginAfterAnonymousTickHydratesUser(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 7})
	c, entityStore := newTestCoordinator(client)
	c.SetActiveMarket("m1")

	c.tickFast()
	if got := client.count("user", "m1"); got != 0 {
		t.Fatalf("anonymous tick fetched user data, calls = %d", got)
	}

	c.SetIdentity("alice")
	c.tickFast()
	if got := client.count("user", "m1"); got != 1 {
		t.Fatalf("user data not fetched after login, calls = %d", got)
	}
	if _, ok := entityStore.GetUserMarketData("m1"); !ok {
		t.Fatalf("user data missing after login")
	}

	// Counter applied now, so an unchanged vector is a no-op.
	c.tickFast()
	if got := client.count("user", "m1"); got != 1 {
		t.Fatalf("unchanged user counter refetched, calls = %d", got)
	}
}

func TestIdentitySwitchRefetchesUserData(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 7})
	c, _ := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	c.tickFast()
	if got := client.count("user", "m1"); got != 1 {
		t.Fatalf("user calls = %d, want 1", got)
	}

	// The server counter has not moved, but the new principal's state must
	// still be fetched.
	c.SetIdentity("bob")
	c.tickFast()
	if got := client.count("user", "m1"); got != 2 {
		t.Fatalf("user data not refetched after identity switch, calls = %d", got)
	}
}

func TestSetActiveMarketResetsSentinel(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	client.setVersions("m2", model.VersionVector{Platform: 4, Orderbook: 4, Candle: 4, User: 4})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.tickFast()

	c.SetActiveMarket("m2")
	if _, known := c.cachedVector(); known {
		t.Fatalf("cache not reset on market switch")
	}

	c.tickFast()
	if got := client.count("platform", "m2"); got != 1 {
		t.Fatalf("full fetch not performed after switch, platform calls = %d", got)
	}
}

func TestMediumTierAggregation(t *testing.T) {
	client := newFakeClient()
	client.index["mA"] = &backend.IndexSnapshot{
		MarketID:     "mA",
		BaseToken:    "tokT",
		LastPriceE12: 100 * model.PriceScale,
		TvlE6:        2_000,
		Volume24hE6:  10,
	}
	client.index["mB"] = &backend.IndexSnapshot{
		MarketID:     "mB",
		BaseToken:    "tokT",
		LastPriceE12: 110 * model.PriceScale,
		TvlE6:        6_000,
		Volume24hE6:  20,
	}
	c, entityStore := newTestCoordinator(client)

	entityStore.UpsertMarket(model.MarketPatch{CanisterID: "mA", BaseToken: strp("tokT")})
	entityStore.UpsertMarket(model.MarketPatch{CanisterID: "mB", BaseToken: strp("tokT")})
	c.RegisterToken("tokT")

	c.tickMedium()

	tok, ok := entityStore.GetToken("tokT")
	if !ok {
		t.Fatalf("token missing after aggregation")
	}
	// (100*1000 + 110*3000) / 4000 = 107.5
	want := int64(107.5 * float64(model.PriceScale))
	if tok.PriceUsdE12 != want {
		t.Fatalf("aggregated price = %d, want %d", tok.PriceUsdE12, want)
	}
	if tok.PriceSource != model.SourceOracle {
		t.Fatalf("aggregated price source = %v", tok.PriceSource)
	}
	if tok.TvlE6 != 4_000 {
		t.Fatalf("aggregated tvl = %d, want 4000", tok.TvlE6)
	}
	if tok.Volume24hE6 != 30 {
		t.Fatalf("aggregated volume = %d, want 30", tok.Volume24hE6)
	}

	mkt, _ := entityStore.GetMarket("mA")
	if mkt.TvlE6 != 2_000 || mkt.Source != model.SourceMarket {
		t.Fatalf("market patch not applied: %+v", mkt)
	}
}

func TestMediumTierFailureIsolation(t *testing.T) {
	client := newFakeClient()
	client.index["good"] = &backend.IndexSnapshot{MarketID: "good", TvlE6: 123}
	client.indexErr["bad"] = fmt.Errorf("down")
	c, entityStore := newTestCoordinator(client)
	c.RegisterMarket("good")
	c.RegisterMarket("bad")

	c.tickMedium()

	if mkt, ok := entityStore.GetMarket("good"); !ok || mkt.TvlE6 != 123 {
		t.Fatalf("healthy market not updated: %+v", mkt)
	}
	if _, ok := entityStore.GetMarket("bad"); ok {
		t.Fatalf("failed market appeared in store")
	}
}

func TestMediumTierNoVisibleMarkets(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestCoordinator(client)

	c.tickMedium()

	client.mu.Lock()
	total := len(client.calls)
	client.mu.Unlock()
	if total != 0 {
		t.Fatalf("tick with no visible markets made %d calls", total)
	}
}

func TestTokenWithoutMarketsNeverPolled(t *testing.T) {
	client := newFakeClient()
	c, entityStore := newTestCoordinator(client)
	entityStore.UpsertToken(model.TokenPatch{CanisterID: "lonely"})
	c.RegisterToken("lonely")

	c.tickMedium()

	client.mu.Lock()
	total := len(client.calls)
	client.mu.Unlock()
	if total != 0 {
		t.Fatalf("market-less token triggered %d calls", total)
	}
}

func TestMarketRefCounting(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestCoordinator(client)

	c.RegisterMarket("m1")
	c.RegisterMarket("m1")
	c.UnregisterMarket("m1")
	if refs := c.VisibleMarkets(); refs["m1"] != 1 {
		t.Fatalf("refs after one unregister = %v", refs)
	}

	c.UnregisterMarket("m1")
	if refs := c.VisibleMarkets(); len(refs) != 0 {
		t.Fatalf("refs after final unregister = %v", refs)
	}

	// Unregistering an unknown id must not panic or underflow.
	c.UnregisterMarket("m1")
	if refs := c.VisibleMarkets(); len(refs) != 0 {
		t.Fatalf("refs after extra unregister = %v", refs)
	}
}

func TestTokenRefCountingFansOut(t *testing.T) {
	client := newFakeClient()
	c, entityStore := newTestCoordinator(client)
	entityStore.UpsertMarket(model.MarketPatch{CanisterID: "mA", BaseToken: strp("tokT"), QuoteToken: strp("other")})
	entityStore.UpsertMarket(model.MarketPatch{CanisterID: "mB", QuoteToken: strp("tokT")})

	c.RegisterToken("tokT")
	refs := c.VisibleMarkets()
	if refs["mA"] != 1 || refs["mB"] != 1 {
		t.Fatalf("fan-out refs = %v", refs)
	}

	c.RegisterToken("tokT")
	c.UnregisterToken("tokT")
	refs = c.VisibleMarkets()
	if refs["mA"] != 1 || refs["mB"] != 1 {
		t.Fatalf("refs after shared unregister = %v", refs)
	}

	c.UnregisterToken("tokT")
	if refs := c.VisibleMarkets(); len(refs) != 0 {
		t.Fatalf("refs after final unregister = %v", refs)
	}
}

func TestHiddenPageSkipsTicks(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.RegisterMarket("m1")
	c.SetPageVisible(false)

	c.tickFast()
	c.tickMedium()
	c.tickSlow()

	client.mu.Lock()
	total := len(client.calls)
	client.mu.Unlock()
	if total != 0 {
		t.Fatalf("hidden page still made %d calls", total)
	}
}

func TestVisibleTransitionFiresAllTiers(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	client.setVersions("m2", model.VersionVector{User: 5})
	c, entityStore := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	c.RegisterMarket("m1")
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m2"})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	// Wait for the immediate start-up ticks of all three tiers.
	eventually(t, func() bool {
		return client.count("versions", "m1") >= 1 &&
			client.count("index", "m1") >= 1 &&
			client.count("versions", "m2") >= 1
	})
	fastBefore := client.count("versions", "m1")
	mediumBefore := client.count("index", "m1")
	slowBefore := client.count("versions", "m2")

	c.SetPageVisible(false)
	c.SetPageVisible(true)

	eventually(t, func() bool {
		return client.count("versions", "m1") > fastBefore &&
			client.count("index", "m1") > mediumBefore &&
			client.count("versions", "m2") > slowBefore
	})
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestMutationShortcut(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, _ := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	c.tickFast()
	versionChecks := client.count("versions", "m1")

	c.ApplyMutationResult(backend.MutationResult{
		MarketID: "m1",
		Versions: model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 2},
	})

	if got := client.count("versions", "m1"); got != versionChecks {
		t.Fatalf("mutation shortcut performed a version check")
	}
	if got := client.count("orderbook", "m1"); got != 1 {
		t.Fatalf("orderbook calls = %d, want 1", got)
	}
	if got := client.count("user", "m1"); got != 2 {
		t.Fatalf("user calls = %d, want 2", got)
	}
	if got := client.count("platform", "m1"); got != 1 {
		t.Fatalf("platform calls = %d, want 1", got)
	}

	vv, known := c.cachedVector()
	if !known || vv != (model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 2}) {
		t.Fatalf("cache after mutation = %+v known=%v", vv, known)
	}

	// The next tick sees counters matching the cache and does nothing.
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 2})
	c.tickFast()
	if got := client.count("orderbook", "m1"); got != 1 {
		t.Fatalf("redundant hydration after mutation: orderbook calls = %d", got)
	}
}

func TestStaleCommitCannotRollBackCounters(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})
	c, _ := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	c.tickFast()

	c.ApplyMutationResult(backend.MutationResult{
		MarketID: "m1",
		Versions: model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 2},
	})

	// A tick that read the cache before the mutation commits its older
	// counters afterwards; the merge must keep the mutation's values.
	c.commitFastCache("m1", model.VersionVector{Platform: 1, Orderbook: 1, Candle: 1, User: 1})

	vv, known := c.cachedVector()
	if !known || vv != (model.VersionVector{Platform: 1, Orderbook: 2, Candle: 1, User: 2}) {
		t.Fatalf("cache after stale commit = %+v known=%v", vv, known)
	}
}

func TestSlowTierVersionGating(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m2", model.VersionVector{User: 5})
	c, entityStore := newTestCoordinator(client)
	c.SetIdentity("alice")
	c.SetActiveMarket("m1")
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m1"})
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m2"})

	c.tickSlow()
	if got := client.count("user", "m2"); got != 1 {
		t.Fatalf("user calls = %d, want 1", got)
	}
	// The fast tier's active market is excluded.
	if got := client.count("versions", "m1"); got != 0 {
		t.Fatalf("active market version-checked by slow tier")
	}

	c.tickSlow()
	if got := client.count("user", "m2"); got != 1 {
		t.Fatalf("unchanged user counter refetched, calls = %d", got)
	}

	client.setVersions("m2", model.VersionVector{User: 6})
	c.tickSlow()
	if got := client.count("user", "m2"); got != 2 {
		t.Fatalf("changed user counter not refetched, calls = %d", got)
	}
}

func TestSlowTierRequiresIdentity(t *testing.T) {
	client := newFakeClient()
	c, entityStore := newTestCoordinator(client)
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m2"})

	c.tickSlow()

	client.mu.Lock()
	total := len(client.calls)
	client.mu.Unlock()
	if total != 0 {
		t.Fatalf("slow tick without identity made %d calls", total)
	}
}

func TestSlowTierUserFetchFailureRetries(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m2", model.VersionVector{User: 5})
	client.userErr["m2"] = fmt.Errorf("boom")
	c, entityStore := newTestCoordinator(client)
	c.SetIdentity("alice")
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m2"})

	c.tickSlow()
	if got := client.count("user", "m2"); got != 1 {
		t.Fatalf("user calls = %d, want 1", got)
	}

	client.mu.Lock()
	delete(client.userErr, "m2")
	client.mu.Unlock()

	// The counter was not cached on failure, so the next tick retries.
	c.tickSlow()
	if got := client.count("user", "m2"); got != 2 {
		t.Fatalf("failed user fetch not retried, calls = %d", got)
	}
}

func TestIdentitySwitchClearsUserData(t *testing.T) {
	client := newFakeClient()
	c, entityStore := newTestCoordinator(client)
	c.SetIdentity("alice")
	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m1"})

	c.SetIdentity("bob")
	if ids := entityStore.UserMarketIDs(); len(ids) != 0 {
		t.Fatalf("user data survived identity switch: %v", ids)
	}

	entityStore.UpsertUserMarketData(model.UserMarketDataPatch{MarketID: "m1"})
	c.ClearIdentity()
	if ids := entityStore.UserMarketIDs(); len(ids) != 0 {
		t.Fatalf("user data survived logout: %v", ids)
	}
}

func TestDestroyResetsState(t *testing.T) {
	client := newFakeClient()
	client.setVersions("m1", model.VersionVector{Platform: 1})
	c, _ := newTestCoordinator(client)
	c.SetActiveMarket("m1")
	c.RegisterMarket("m1")
	c.tickFast()

	c.Destroy()

	if _, known := c.cachedVector(); known {
		t.Fatalf("version cache survived destroy")
	}
	if refs := c.VisibleMarkets(); len(refs) != 0 {
		t.Fatalf("visibility refs survived destroy: %v", refs)
	}
}

func strp(v string) *string { return &v }
