package arbitrage

import (
	"testing"

	"arbwatch/internal/model"
	"arbwatch/internal/snapshot"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(entries ...any) snapshot.View {
	s := snapshot.NewStore()
	for i := 0; i < len(entries); i += 2 {
		s.Set(model.ExchangeID(entries[i].(string)), decimal.NewFromFloat(entries[i+1].(float64)))
	}
	return s.View()
}

func TestEvaluate_TwoVenues(t *testing.T) {
	opp, ok := Evaluate(view("A", 100.0, "B", 105.0), "SOL/USDT")
	require.True(t, ok)

	assert.Equal(t, model.PairID("SOL/USDT"), opp.Pair)
	assert.Equal(t, model.ExchangeID("A"), opp.BestBuySource)
	assert.True(t, opp.BestBuyPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, model.ExchangeID("B"), opp.BestSellSource)
	assert.True(t, opp.BestSellPrice.Equal(decimal.NewFromInt(105)))
	assert.True(t, opp.SpreadPercent.Equal(decimal.NewFromInt(5)), "spread %s", opp.SpreadPercent)
}

func TestEvaluate_SingleVenue(t *testing.T) {
	_, ok := Evaluate(view("A", 100.0), "SOL/USDT")
	assert.False(t, ok)

	_, ok = Evaluate(nil, "SOL/USDT")
	assert.False(t, ok)
}

func TestEvaluate_TieBreaksToFirstKey(t *testing.T) {
	opp, ok := Evaluate(view("A", 100.0, "B", 100.0), "SOL/USDT")
	require.True(t, ok)
	assert.Equal(t, model.ExchangeID("A"), opp.BestBuySource)
	assert.Equal(t, model.ExchangeID("B"), opp.BestSellSource)
	assert.True(t, opp.SpreadPercent.IsZero())

	opp, ok = Evaluate(view("B", 100.0, "A", 100.0), "SOL/USDT")
	require.True(t, ok)
	assert.Equal(t, model.ExchangeID("B"), opp.BestBuySource)
	assert.Equal(t, model.ExchangeID("A"), opp.BestSellSource)
}

func TestEvaluate_ManyVenues(t *testing.T) {
	opp, ok := Evaluate(view(
		"Binance", 141.2,
		"Jupiter", 140.8,
		"Raydium", 141.9,
		"Orca", 140.8,
		"Kraken", 141.9,
	), "SOL/USDT")
	require.True(t, ok)
	assert.Equal(t, model.ExchangeID("Jupiter"), opp.BestBuySource)
	assert.Equal(t, model.ExchangeID("Raydium"), opp.BestSellSource)

	want := Spread(decimal.NewFromFloat(140.8), decimal.NewFromFloat(141.9))
	assert.True(t, opp.SpreadPercent.Equal(want))
}

func TestEvaluate_NonPositiveBuyPrice(t *testing.T) {
	_, ok := Evaluate(view("A", 0.0, "B", 10.0), "SOL/USDT")
	assert.False(t, ok)
}
