package model

import "math"

// Fixed-point scales used on the wire and in the store. Prices carry 12
// fractional digits, amounts (volume, TVL, balances) carry 6.
const (
	PriceScale  int64 = 1_000_000_000_000
	AmountScale int64 = 1_000_000
)

// PriceFromFloat converts a USD price to its e12 fixed-point representation.
func PriceFromFloat(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int64(math.Round(value * float64(PriceScale)))
}

// PriceToFloat converts an e12 fixed-point price back to a float.
func PriceToFloat(value int64) float64 {
	return float64(value) / float64(PriceScale)
}

// AmountFromFloat converts an amount to its e6 fixed-point representation.
func AmountFromFloat(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int64(math.Round(value * float64(AmountScale)))
}

// AmountToFloat converts an e6 fixed-point amount back to a float.
func AmountToFloat(value int64) float64 {
	return float64(value) / float64(AmountScale)
}
