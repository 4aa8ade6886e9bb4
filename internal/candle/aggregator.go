// Package candle folds price ticks into one-second OHLC candles.
package candle

import (
	"time"

	"arbwatch/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultMaxCandles bounds the series kept by an Aggregator.
const DefaultMaxCandles = 500

// BucketSize is the width of one candle.
const BucketSize = time.Second

// Result describes the effect of one ingested tick.
type Result struct {
	// Accepted is false when the tick fell into a bucket older than the
	// current candle and was ignored.
	Accepted bool
	// Current is the open candle after the tick.
	Current model.Candle
	// Closed is set when the tick opened a new bucket and the previous
	// candle was completed.
	Closed *model.Candle
	Trend  model.Trend
}

// Aggregator builds the candle series for one (source, pair).
type Aggregator struct {
	max int

	candles   []model.Candle
	lastPrice decimal.Decimal
	hasPrice  bool
	trend     model.Trend
}

// NewAggregator creates an Aggregator keeping at most maxCandles candles.
func NewAggregator(maxCandles int) *Aggregator {
	if maxCandles <= 0 {
		maxCandles = DefaultMaxCandles
	}
	return &Aggregator{max: maxCandles}
}

// Bucket truncates t to its candle bucket.
func Bucket(t time.Time) time.Time {
	return t.Truncate(BucketSize)
}

// Ingest folds price observed at t into the series.
func (a *Aggregator) Ingest(price decimal.Decimal, t time.Time) Result {
	bucket := Bucket(t)

	n := len(a.candles)
	switch {
	case n == 0 || bucket.After(a.candles[n-1].BucketTime):
		var closed *model.Candle
		if n > 0 {
			c := a.candles[n-1]
			closed = &c
		}
		if n == a.max {
			copy(a.candles, a.candles[1:])
			a.candles = a.candles[:n-1]
		}
		a.candles = append(a.candles, model.Candle{
			BucketTime: bucket,
			Open:       price,
			High:       price,
			Low:        price,
			Close:      price,
		})
		a.observe(price)
		return Result{Accepted: true, Current: a.candles[len(a.candles)-1], Closed: closed, Trend: a.trend}

	case bucket.Equal(a.candles[n-1].BucketTime):
		c := &a.candles[n-1]
		c.High = decimal.Max(c.High, price)
		c.Low = decimal.Min(c.Low, price)
		c.Close = price
		a.observe(price)
		return Result{Accepted: true, Current: *c, Trend: a.trend}

	default:
		return Result{Current: a.candles[n-1], Trend: a.trend}
	}
}

func (a *Aggregator) observe(price decimal.Decimal) {
	if a.hasPrice {
		switch price.Cmp(a.lastPrice) {
		case 1:
			a.trend = model.TrendUp
		case -1:
			a.trend = model.TrendDown
		}
	}
	a.lastPrice = price
	a.hasPrice = true
}

// Last returns the open candle.
func (a *Aggregator) Last() (model.Candle, bool) {
	if len(a.candles) == 0 {
		return model.Candle{}, false
	}
	return a.candles[len(a.candles)-1], true
}

// Series returns a copy of the candles, oldest first.
func (a *Aggregator) Series() []model.Candle {
	out := make([]model.Candle, len(a.candles))
	copy(out, a.candles)
	return out
}

// Trend returns the direction of the last accepted move.
func (a *Aggregator) Trend() model.Trend {
	return a.trend
}
