package candle

import (
	"testing"
	"time"

	"arbwatch/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func at(sec int64, ms int64) time.Time {
	return time.Unix(sec, ms*int64(time.Millisecond)).UTC()
}

func assertOHLC(t *testing.T, c model.Candle, bucket int64, o, h, l, cl float64) {
	t.Helper()
	assert.Equal(t, time.Unix(bucket, 0).UTC(), c.BucketTime.UTC(), "bucket")
	assert.True(t, c.Open.Equal(d(o)), "open: got %s want %v", c.Open, o)
	assert.True(t, c.High.Equal(d(h)), "high: got %s want %v", c.High, h)
	assert.True(t, c.Low.Equal(d(l)), "low: got %s want %v", c.Low, l)
	assert.True(t, c.Close.Equal(d(cl)), "close: got %s want %v", c.Close, cl)
}

func TestAggregator_SameSecondExtendsCandle(t *testing.T) {
	a := NewAggregator(0)

	r := a.Ingest(d(10), at(100, 0))
	require.True(t, r.Accepted)
	assert.Nil(t, r.Closed)

	a.Ingest(d(12), at(100, 200))
	a.Ingest(d(9), at(100, 500))
	r = a.Ingest(d(11), at(100, 999))

	require.Len(t, a.Series(), 1)
	assertOHLC(t, r.Current, 100, 10, 12, 9, 11)
}

func TestAggregator_NewSecondClosesPrevious(t *testing.T) {
	a := NewAggregator(0)
	a.Ingest(d(1), at(10, 0))
	a.Ingest(d(2), at(10, 300))

	r := a.Ingest(d(3), at(11, 0))
	require.NotNil(t, r.Closed)
	assertOHLC(t, *r.Closed, 10, 1, 2, 1, 2)
	assertOHLC(t, r.Current, 11, 3, 3, 3, 3)

	series := a.Series()
	require.Len(t, series, 2)
	assertOHLC(t, series[0], 10, 1, 2, 1, 2)
	assertOHLC(t, series[1], 11, 3, 3, 3, 3)
}

func TestAggregator_OutOfOrderIsIgnored(t *testing.T) {
	a := NewAggregator(0)
	a.Ingest(d(5), at(20, 0))
	a.Ingest(d(6), at(21, 0))

	r := a.Ingest(d(100), at(20, 500))
	assert.False(t, r.Accepted)
	assert.Nil(t, r.Closed)
	assertOHLC(t, r.Current, 21, 6, 6, 6, 6)

	series := a.Series()
	require.Len(t, series, 2)
	assertOHLC(t, series[0], 20, 5, 5, 5, 5)
	assert.Equal(t, model.TrendUp, a.Trend())
}

func TestAggregator_Trend(t *testing.T) {
	a := NewAggregator(0)

	assert.Equal(t, model.TrendNone, a.Ingest(d(10), at(1, 0)).Trend)
	assert.Equal(t, model.TrendUp, a.Ingest(d(11), at(1, 100)).Trend)
	assert.Equal(t, model.TrendUp, a.Ingest(d(11), at(1, 200)).Trend, "unchanged price keeps trend")
	assert.Equal(t, model.TrendDown, a.Ingest(d(10.5), at(2, 0)).Trend)
	assert.Equal(t, model.TrendDown, a.Ingest(d(10.5), at(3, 0)).Trend)
	assert.Equal(t, model.TrendUp, a.Ingest(d(12), at(3, 10)).Trend)
}

func TestAggregator_InvariantsOverIncreasingBuckets(t *testing.T) {
	a := NewAggregator(0)
	prices := []float64{140.1, 139.8, 141.2, 140.0, 140.0, 142.5, 138.9, 139.4, 141.1, 140.7}
	firstInBucket := map[int64]float64{}
	for i, p := range prices {
		sec := int64(1000 + i/3)
		if _, ok := firstInBucket[sec]; !ok {
			firstInBucket[sec] = p
		}
		a.Ingest(d(p), at(sec, int64(i%3)*100))
	}

	series := a.Series()
	require.Len(t, series, len(firstInBucket))
	for i, c := range series {
		assert.True(t, c.Low.LessThanOrEqual(c.Open), "candle %d low<=open", i)
		assert.True(t, c.Low.LessThanOrEqual(c.Close), "candle %d low<=close", i)
		assert.True(t, c.High.GreaterThanOrEqual(c.Open), "candle %d high>=open", i)
		assert.True(t, c.High.GreaterThanOrEqual(c.Close), "candle %d high>=close", i)
		assert.True(t, c.Open.Equal(d(firstInBucket[c.BucketTime.Unix()])), "candle %d open", i)
		if i > 0 {
			assert.True(t, c.BucketTime.After(series[i-1].BucketTime))
		}
	}
}

func TestAggregator_SeriesIsBounded(t *testing.T) {
	a := NewAggregator(3)
	for i := int64(0); i < 4; i++ {
		a.Ingest(d(float64(i+1)), at(i, 0))
	}
	r := a.Ingest(d(5), at(4, 0))
	require.NotNil(t, r.Closed)
	assertOHLC(t, *r.Closed, 3, 4, 4, 4, 4)

	series := a.Series()
	require.Len(t, series, 3)
	assertOHLC(t, series[0], 2, 3, 3, 3, 3)
	assertOHLC(t, series[1], 3, 4, 4, 4, 4)
	last, ok := a.Last()
	require.True(t, ok)
	assertOHLC(t, last, 4, 5, 5, 5, 5)
}

func TestSet_KeysBySourceAndPair(t *testing.T) {
	s := NewSet(0)
	recv := at(50, 0)

	s.Ingest(model.PriceTick{Source: "Binance", Pair: "SOL/USDT", Price: d(1)}, recv)
	s.Ingest(model.PriceTick{Source: "Jupiter", Pair: "SOL/USDC", Price: d(2)}, recv)
	u := s.Ingest(model.PriceTick{Source: "Binance", Pair: "SOL/USDT", Price: d(3), ObservedAt: at(51, 0)}, recv)

	assert.Equal(t, Key{Source: "Binance", Pair: "SOL/USDT"}, u.Key)
	require.NotNil(t, u.Closed)
	assert.Equal(t, []Key{{"Binance", "SOL/USDT"}, {"Jupiter", "SOL/USDC"}}, s.Keys())

	agg, ok := s.Get(Key{Source: "Jupiter", Pair: "SOL/USDC"})
	require.True(t, ok)
	assert.Len(t, agg.Series(), 1)
}
