package store

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		aliased bool
	}{
		{"ckBTC", "BTC", true},
		{"WETH", "ETH", true},
		{"icp", "ICP", false},
		{"  usdc ", "USDC", false},
		{"XYZ", "XYZ", false},
	}
	for _, tc := range cases {
		got, aliased := NormalizeSymbol(tc.in)
		if got != tc.want || aliased != tc.aliased {
			t.Fatalf("NormalizeSymbol(%q) = %q/%v, want %q/%v", tc.in, got, aliased, tc.want, tc.aliased)
		}
	}
}

func TestDisplayFields(t *testing.T) {
	symbol, name := displayFields("ckETH", "ckETH Ledger")
	if symbol != "ETH" || name != "Ethereum" {
		t.Fatalf("displayFields = %q %q", symbol, name)
	}

	symbol, name = displayFields("CHAT", "OpenChat")
	if symbol != "CHAT" || name != "OpenChat" {
		t.Fatalf("raw passthrough broken: %q %q", symbol, name)
	}
}
