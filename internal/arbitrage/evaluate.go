package arbitrage

import (
	"arbwatch/internal/model"
	"arbwatch/internal/snapshot"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate finds the cheapest and the most expensive venue in view.
//
// Ties are broken by insertion order: the earliest exchange holding the
// minimum is the buy side, and the earliest exchange other than the buy side
// holding the maximum is the sell side. A result requires two distinct venues
// and a positive buy price.
func Evaluate(view snapshot.View, pair model.PairID) (model.Opportunity, bool) {
	if len(view) < 2 {
		return model.Opportunity{}, false
	}

	buy := view[0]
	for _, e := range view[1:] {
		if e.Price.LessThan(buy.Price) {
			buy = e
		}
	}

	var sell snapshot.Entry
	found := false
	for _, e := range view {
		if e.Source == buy.Source {
			continue
		}
		if !found || e.Price.GreaterThan(sell.Price) {
			sell = e
			found = true
		}
	}
	if !found || sell.Source == buy.Source || !buy.Price.IsPositive() {
		return model.Opportunity{}, false
	}

	return model.Opportunity{
		Pair:           pair,
		BestBuySource:  buy.Source,
		BestBuyPrice:   buy.Price,
		BestSellSource: sell.Source,
		BestSellPrice:  sell.Price,
		SpreadPercent:  Spread(buy.Price, sell.Price),
	}, true
}

// Spread returns (sell - buy) / buy * 100.
func Spread(buy, sell decimal.Decimal) decimal.Decimal {
	return sell.Sub(buy).Div(buy).Mul(hundred)
}
