package model

import "time"

// PricePoint is one journaled token price observation.
type PricePoint struct {
	CanisterID  string    `json:"canister_id"`
	Symbol      string    `json:"symbol"`
	PriceUsdE12 int64     `json:"price_usd_e12"`
	Source      Source    `json:"source"`
	At          time.Time `json:"at"`
}
