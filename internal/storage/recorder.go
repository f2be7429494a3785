package storage

import (
	"sync"

	"go.uber.org/zap"

	"tradesync/internal/model"
	"tradesync/internal/store"
)

// Recorder journals token price changes from the entity store's update feed.
// Attach it with entityStore.Subscribe(recorder.OnUpdate).
type Recorder struct {
	store  *store.Store
	sink   Storage
	logger *zap.Logger

	mu       sync.Mutex
	lastSeen map[string]int64
}

func NewRecorder(entityStore *store.Store, sink Storage, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:    entityStore,
		sink:     sink,
		logger:   logger,
		lastSeen: make(map[string]int64),
	}
}

// OnUpdate journals the token's price when a token upsert changed it. Sink
// errors are logged and swallowed; the journal is best-effort.
func (r *Recorder) OnUpdate(u store.Update) {
	if u.Kind != store.KindToken {
		return
	}
	tok, ok := r.store.GetToken(u.ID)
	if !ok || tok.PriceUsdE12 == 0 {
		return
	}
	r.mu.Lock()
	if r.lastSeen[u.ID] == tok.PriceUsdE12 {
		r.mu.Unlock()
		return
	}
	r.lastSeen[u.ID] = tok.PriceUsdE12
	r.mu.Unlock()

	point := model.PricePoint{
		CanisterID:  tok.CanisterID,
		Symbol:      tok.DisplaySymbol,
		PriceUsdE12: tok.PriceUsdE12,
		Source:      tok.PriceSource,
		At:          tok.PriceUpdatedAt,
	}
	if err := r.sink.PutPricePoints([]model.PricePoint{point}); err != nil {
		r.logger.Warn("journal price point failed", zap.String("token", tok.CanisterID), zap.Error(err))
	}
}
