package model

// Source tags where a record (or a token price) came from. Higher values are
// more authoritative: a stored non-zero price is only overwritten by an update
// whose source ranks at least as high.
type Source uint8

const (
	SourceUnknown Source = iota
	SourceStatic         // hardcoded bootstrap data
	SourceIndex          // bulk indexer snapshot
	SourceMarket         // fetched directly from a market process
	SourceOracle         // oracle-derived aggregate
)

func (s Source) String() string {
	switch s {
	case SourceStatic:
		return "static"
	case SourceIndex:
		return "index"
	case SourceMarket:
		return "market"
	case SourceOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// Outranks reports whether s is strictly more authoritative than other.
func (s Source) Outranks(other Source) bool {
	return s > other
}
