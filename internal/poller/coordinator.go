// Package poller schedules the three-tier refresh of the entity store: a fast
// version-gated loop for the one actively traded market, a medium loop for
// every visible market, and a slow loop for markets holding user data.
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tradesync/internal/backend"
	"tradesync/internal/model"
	"tradesync/internal/store"
	"tradesync/internal/transform"
)

// Config holds the coordinator cadences and fetch limits.
type Config struct {
	FastInterval   time.Duration
	MediumInterval time.Duration
	SlowInterval   time.Duration
	FetchTimeout   time.Duration
	PruneTTL       time.Duration
}

// DefaultConfig returns the production cadences.
func DefaultConfig() Config {
	return Config{
		FastInterval:   time.Second,
		MediumInterval: 8 * time.Second,
		SlowInterval:   15 * time.Second,
		FetchTimeout:   10 * time.Second,
		PruneTTL:       30 * time.Minute,
	}
}

// Handlers receive hydration payloads that live outside the entity store
// (order book and chart state are owned by the presentation layer). Nil
// handlers are skipped.
type Handlers struct {
	Orderbook func(*backend.Orderbook)
	Candles   func(*backend.CandleSet)
	Trades    func([]backend.Trade)
}

// versionCache is the fast tier's last-applied version vector. The zero value
// is the "unknown" sentinel that forces a full refresh.
type versionCache struct {
	vv    model.VersionVector
	known bool
}

// Coordinator drives the three polling tiers against one backend client and
// one entity store.
type Coordinator struct {
	cfg      Config
	client   backend.Client
	store    *store.Store
	handlers Handlers
	logger   *zap.Logger

	mu           sync.Mutex
	running      bool
	pageVisible  bool
	activeMarket string
	fastCache    versionCache
	principal    string
	userVersions map[string]uint64
	marketRefs   map[string]int
	tokenRefs    map[string]int
	tokenFan     map[string]map[string]transform.Role

	fastBusy   atomic.Bool
	mediumBusy atomic.Bool
	slowBusy   atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a stopped coordinator. The page is assumed visible until the
// host reports otherwise.
func New(cfg Config, client backend.Client, entityStore *store.Store, handlers Handlers, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:          cfg,
		client:       client,
		store:        entityStore,
		handlers:     handlers,
		logger:       logger,
		pageVisible:  true,
		userVersions: make(map[string]uint64),
		marketRefs:   make(map[string]int),
		tokenRefs:    make(map[string]int),
		tokenFan:     make(map[string]map[string]transform.Role),
	}
}

// Start launches the three tier loops. Each fires once immediately and then
// on its own cadence.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	c.running = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(3)
	go c.loop(runCtx, c.cfg.FastInterval, c.tickFast)
	go c.loop(runCtx, c.cfg.MediumInterval, c.tickMedium)
	go c.loop(runCtx, c.cfg.SlowInterval, c.tickSlow)

	c.logger.Info("coordinator started",
		zap.Duration("fast", c.cfg.FastInterval),
		zap.Duration("medium", c.cfg.MediumInterval),
		zap.Duration("slow", c.cfg.SlowInterval),
	)
	return nil
}

func (c *Coordinator) loop(ctx context.Context, interval time.Duration, tick func()) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// Stop detaches the timers. Ticks already in flight run to completion and
// their results still land in the store.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.logger.Info("coordinator stopped")
}

// Destroy stops the coordinator and resets every cached version and
// visibility reference.
func (c *Coordinator) Destroy() {
	c.Stop()
	c.mu.Lock()
	c.fastCache = versionCache{}
	c.activeMarket = ""
	c.userVersions = make(map[string]uint64)
	c.marketRefs = make(map[string]int)
	c.tokenRefs = make(map[string]int)
	c.tokenFan = make(map[string]map[string]transform.Role)
	c.mu.Unlock()
}

// SetPageVisible records host page visibility. Hidden pages skip every tick;
// the hidden-to-visible transition fires all three tiers once immediately.
func (c *Coordinator) SetPageVisible(visible bool) {
	c.mu.Lock()
	was := c.pageVisible
	c.pageVisible = visible
	running := c.running
	c.mu.Unlock()

	if visible && !was && running {
		go c.tickFast()
		go c.tickMedium()
		go c.tickSlow()
	}
}

func (c *Coordinator) pageHidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pageVisible
}

// SetActiveMarket switches the fast tier's target. The cached version vector
// resets to the unknown sentinel so the next tick fetches everything.
func (c *Coordinator) SetActiveMarket(marketID string) {
	c.mu.Lock()
	if c.activeMarket != marketID {
		c.activeMarket = marketID
		c.fastCache = versionCache{}
	}
	c.mu.Unlock()
}

// SetIdentity switches the acting principal. Any previous user's market data
// is cleared wholesale.
func (c *Coordinator) SetIdentity(principal string) {
	c.mu.Lock()
	if c.principal == principal {
		c.mu.Unlock()
		return
	}
	c.principal = principal
	c.userVersions = make(map[string]uint64)
	// The fast cache may hold counters applied for the previous principal.
	c.fastCache = versionCache{}
	c.mu.Unlock()

	c.store.ClearUserData()
	c.logger.Info("identity switched", zap.Bool("authenticated", principal != ""))
}

// ClearIdentity logs the user out.
func (c *Coordinator) ClearIdentity() {
	c.SetIdentity("")
}

// ApplyMutationResult feeds the version counters returned by a successful
// user write straight into the fast tier, hydrating whichever subsystems the
// write touched without waiting for the next version check.
func (c *Coordinator) ApplyMutationResult(res backend.MutationResult) {
	c.mu.Lock()
	active := c.activeMarket
	cached := c.fastCache
	principal := c.principal
	c.mu.Unlock()

	ctx, cancelFetch := c.fetchContext()
	defer cancelFetch()

	if res.MarketID == active && active != "" {
		next := c.refreshChanged(ctx, active, res.Versions, cached, principal)
		c.commitFastCache(active, next)
		return
	}

	// Off-screen market: only the user subsystem matters here, the medium
	// tier covers the rest when the market is visible.
	if principal == "" {
		return
	}
	c.mu.Lock()
	last, known := c.userVersions[res.MarketID]
	c.mu.Unlock()
	if known && last == res.Versions.User {
		return
	}
	if c.hydrateUser(ctx, res.MarketID, principal) {
		c.mu.Lock()
		c.userVersions[res.MarketID] = res.Versions.User
		c.mu.Unlock()
	}
}

// commitFastCache merges applied counters into the fast cache per field,
// keeping the higher value. A tick that started before a mutation shortcut
// and commits after it therefore cannot roll counters back below what the
// mutation already applied.
func (c *Coordinator) commitFastCache(market string, next model.VersionVector) {
	c.mu.Lock()
	if c.activeMarket == market {
		c.fastCache = versionCache{vv: maxVector(c.fastCache.vv, next), known: true}
	}
	c.mu.Unlock()
}

func maxVector(a, b model.VersionVector) model.VersionVector {
	if b.Platform > a.Platform {
		a.Platform = b.Platform
	}
	if b.Orderbook > a.Orderbook {
		a.Orderbook = b.Orderbook
	}
	if b.Candle > a.Candle {
		a.Candle = b.Candle
	}
	if b.User > a.User {
		a.User = b.User
	}
	return a
}

// fetchContext builds a timeout context detached from the run context so
// stopping the coordinator never aborts an in-flight fetch.
func (c *Coordinator) fetchContext() (context.Context, context.CancelFunc) {
	timeout := c.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
