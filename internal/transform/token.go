package transform

import (
	"math"
	"math/big"

	"tradesync/internal/backend"
	"tradesync/internal/model"
)

// Role says which side of a market a token sits on.
type Role uint8

const (
	RoleBase Role = iota + 1
	RoleQuote
)

// Contribution is one market's partial data point for a token. Price fields
// are only meaningful for base-role contributions.
type Contribution struct {
	MarketID string
	Role     Role

	Volume24hE6 int64
	Volume7dE6  int64
	Volume30dE6 int64
	TvlE6       int64

	PriceE12          int64
	PriceChange24hBps int64
}

// TokenContribution extracts the slice of a market snapshot attributable to a
// token participating in the given role. Half the market TVL is attributed to
// each side; price carries over only for the base side.
func TokenContribution(snap *backend.IndexSnapshot, role Role) Contribution {
	c := Contribution{
		MarketID:    snap.MarketID,
		Role:        role,
		Volume24hE6: snap.Volume24hE6,
		Volume7dE6:  snap.Volume7dE6,
		Volume30dE6: snap.Volume30dE6,
		TvlE6:       snap.TvlE6 / 2,
	}
	if role == RoleBase {
		c.PriceE12 = snap.LastPriceE12
		c.PriceChange24hBps = snap.PriceChange24hBps
	}
	return c
}

// AggregateContributions folds every contribution for one token into a single
// oracle-sourced patch. Volumes and TVL sum across both roles; price and
// price change are TVL-weighted averages over base-role contributions only.
// With no base-role weight the price is left out of the patch, deferring to
// whatever the store already holds.
func AggregateContributions(tokenID string, contribs []Contribution) model.TokenPatch {
	patch := model.TokenPatch{CanisterID: tokenID, Source: model.SourceOracle}
	if len(contribs) == 0 {
		return patch
	}

	var volume24h, volume7d, volume30d, tvl int64
	priceNum := new(big.Int)
	changeNum := new(big.Int)
	weight := new(big.Int)

	for _, c := range contribs {
		volume24h += c.Volume24hE6
		volume7d += c.Volume7dE6
		volume30d += c.Volume30dE6
		tvl += c.TvlE6

		if c.Role != RoleBase || c.TvlE6 <= 0 {
			continue
		}
		w := big.NewInt(c.TvlE6)
		priceNum.Add(priceNum, new(big.Int).Mul(big.NewInt(c.PriceE12), w))
		changeNum.Add(changeNum, new(big.Int).Mul(big.NewInt(c.PriceChange24hBps), w))
		weight.Add(weight, w)
	}

	patch.Volume24hE6 = i64p(volume24h)
	patch.Volume7dE6 = i64p(volume7d)
	patch.Volume30dE6 = i64p(volume30d)
	patch.TvlE6 = i64p(tvl)

	if weight.Sign() > 0 {
		price := new(big.Int).Quo(priceNum, weight)
		change := new(big.Int).Quo(changeNum, weight)
		patch.PriceUsdE12 = i64p(price.Int64())
		patch.PriceSource = model.SourceOracle
		patch.PriceChange24hBps = i64p(change.Int64())
	}
	return patch
}

// DerivePriceFromTick recomputes a base token's USD price from its market's
// trade tick and the quote token's known USD price, keeping both sides of a
// pair internally consistent. Returns 0 when the quote price is unknown.
func DerivePriceFromTick(tick int32, baseDecimals, quoteDecimals uint8, quotePriceE12 int64) int64 {
	if quotePriceE12 == 0 {
		return 0
	}
	// One tick is a 0.01% price step; the decimal gap rescales the raw
	// ratio into human units.
	ratio := math.Pow(1.0001, float64(tick))
	ratio *= math.Pow(10, float64(int(baseDecimals))-float64(int(quoteDecimals)))
	return model.PriceFromFloat(ratio * model.PriceToFloat(quotePriceE12))
}
