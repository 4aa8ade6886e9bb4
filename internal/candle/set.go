package candle

import (
	"time"

	"arbwatch/internal/model"
)

// Key identifies one candle series.
type Key struct {
	Source model.ExchangeID
	Pair   model.PairID
}

// Update is the candle-side outcome of one tick, tagged with its series.
type Update struct {
	Key
	Result
}

// Set holds one Aggregator per (source, pair) for a single subscription.
type Set struct {
	maxCandles  int
	aggregators map[Key]*Aggregator
	order       []Key
}

// NewSet creates an empty Set.
func NewSet(maxCandles int) *Set {
	return &Set{
		maxCandles:  maxCandles,
		aggregators: make(map[Key]*Aggregator),
	}
}

// Ingest routes tick to its aggregator, creating it on first use.
func (s *Set) Ingest(tick model.PriceTick, receivedAt time.Time) Update {
	key := Key{Source: tick.Source, Pair: tick.Pair}
	agg, ok := s.aggregators[key]
	if !ok {
		agg = NewAggregator(s.maxCandles)
		s.aggregators[key] = agg
		s.order = append(s.order, key)
	}
	return Update{Key: key, Result: agg.Ingest(tick.Price, tick.Time(receivedAt))}
}

// Get returns the aggregator for key.
func (s *Set) Get(key Key) (*Aggregator, bool) {
	agg, ok := s.aggregators[key]
	return agg, ok
}

// Keys returns the series keys in creation order.
func (s *Set) Keys() []Key {
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}
