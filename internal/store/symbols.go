package store

import "strings"

// symbolAliases maps wrapped/bridged ticker symbols to their canonical form.
// Keys are upper-case.
var symbolAliases = map[string]string{
	"CKBTC":  "BTC",
	"CKETH":  "ETH",
	"CKUSDC": "USDC",
	"CKUSDT": "USDT",
	"WBTC":   "BTC",
	"WETH":   "ETH",
	"WICP":   "ICP",
	"WSOL":   "SOL",
}

// canonicalNames maps a canonical symbol to its human-readable name, used when
// the raw symbol was normalized through an alias.
var canonicalNames = map[string]string{
	"BTC":  "Bitcoin",
	"ETH":  "Ethereum",
	"USDC": "USD Coin",
	"USDT": "Tether USD",
	"ICP":  "Internet Computer",
	"SOL":  "Solana",
}

// NormalizeSymbol resolves a raw ticker symbol to its canonical upper-case
// form. The second return reports whether an alias was applied.
func NormalizeSymbol(symbol string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := symbolAliases[upper]; ok {
		return canonical, true
	}
	return upper, false
}

// displayFields derives the display symbol and name for a token.
func displayFields(symbol, name string) (string, string) {
	display, aliased := NormalizeSymbol(symbol)
	if !aliased {
		return display, name
	}
	if canonical, ok := canonicalNames[display]; ok {
		return display, canonical
	}
	return display, name
}
