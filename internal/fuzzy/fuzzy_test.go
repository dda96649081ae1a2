package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	assert.Equal(t, "black wallet", Process("  Black Wallet! "))
	assert.Equal(t, "id card  blue", Process("ID-card (blue)"))
	assert.Equal(t, "", Process("!!!"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("wallet", "wallet"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("", "wallet"))
	assert.InDelta(t, 8.0/13.0, Ratio("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 12.0/13.0, Ratio("wallet", "wallets"), 1e-9)
	assert.InDelta(t, 12.0/13.0, Ratio("wallets", "wallet"), 1e-9)
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 1.0, PartialRatio("abc", "xxabcxx"))
	assert.Equal(t, 1.0, PartialRatio("xxabcxx", "abc"))
	assert.Equal(t, 0.0, PartialRatio("", "abc"))
	assert.InDelta(t, 2.0/3.0, PartialRatio("abd", "xxabcxx"), 1e-9)
}

func TestTokenRatios(t *testing.T) {
	assert.Equal(t, 1.0, TokenSortRatio("wallet black", "black wallet"))
	assert.Equal(t, 1.0, TokenSetRatio("black wallet", "wallet black leather"))
	assert.Less(t, TokenSetRatio("red umbrella", "black wallet"), 0.5)
}

func TestWRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical after processing", a: "Black Wallet!", b: "black wallet", want: 1.0},
		{name: "empty query", a: "", b: "black wallet", want: 0},
		{name: "punctuation only", a: "??", b: "black wallet", want: 0},
		{name: "reordered tokens", a: "wallet black", b: "black wallet", want: 0.95},
		{name: "word inside longer text", a: "wallet", b: "black leather wallet", want: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WRatio(tt.a, tt.b), 1e-9)
		})
	}
}

// TestWRatioBounds verifies scores stay within [0,1] and favour related text
func TestWRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"blue water bottle", "steel bottle, blue cap"},
		{"calculator", "casio fx-991 calculator left in library"},
		{"keys", "umbrella"},
		{"a", "an extremely long description of a lost laptop charger with a frayed cable"},
	}
	for _, p := range pairs {
		got := WRatio(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0, p[0])
		assert.LessOrEqual(t, got, 1.0, p[0])
	}

	related := WRatio("calculator", "casio fx-991 calculator left in library")
	unrelated := WRatio("keys", "umbrella")
	assert.Greater(t, related, unrelated)
}
