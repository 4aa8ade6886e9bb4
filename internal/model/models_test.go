package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	cases := map[string]PairID{
		"SOL/USDT":   "SOL/USDT",
		"sol/usdc":   "SOL/USDC",
		"btc-eur":    "BTC/EUR",
		" eth_usdt ": "ETH/USDT",
	}
	for in, want := range cases {
		got, err := ParsePair(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "SOL", "SOL/", "A/B/C"} {
		_, err := ParsePair(bad)
		assert.Error(t, err, bad)
	}
}

func TestPairID_BaseQuote(t *testing.T) {
	p := PairID("SOL/USDT")
	assert.Equal(t, "SOL", p.Base())
	assert.Equal(t, "USDT", p.Quote())
}

func TestPriceTick_Time(t *testing.T) {
	received := time.Unix(100, 0)

	assert.Equal(t, received, PriceTick{}.Time(received))

	observed := time.Unix(42, 500)
	assert.Equal(t, observed, PriceTick{ObservedAt: observed}.Time(received))
}
