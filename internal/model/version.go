package model

// VersionVector holds the four per-market subsystem counters. Each counter is
// incremented server-side when the corresponding subsystem changes, so a
// counter equal to the last-seen value means nothing to refetch.
type VersionVector struct {
	Platform  uint64 `json:"platform"`
	Orderbook uint64 `json:"orderbook"`
	Candle    uint64 `json:"candle"`
	User      uint64 `json:"user"`
}

// Equal reports whether both vectors carry identical counters.
func (v VersionVector) Equal(other VersionVector) bool {
	return v == other
}
