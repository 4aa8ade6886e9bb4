// Package market holds the state of a single subscription: the price
// snapshot, the candle series and the latest opportunity.
package market

import (
	"time"

	"arbwatch/internal/arbitrage"
	"arbwatch/internal/candle"
	"arbwatch/internal/feed"
	"arbwatch/internal/model"
	"arbwatch/internal/snapshot"
)

// Update is what one applied message produced, handed to the rendering side.
type Update struct {
	Kind feed.Kind
	Pair model.PairID
	// Generation identifies the subscription the update belongs to.
	Generation uint64
	Prices     snapshot.View
	Candles    []candle.Update
	// Opportunity is the feed-supplied opportunity; nil for bulk updates.
	Opportunity *model.Opportunity
	// Recomputed is derived from Prices; nil when fewer than two venues are
	// priced.
	Recomputed *model.Opportunity
}

// View is a read-only copy of a State.
type View struct {
	Pair        model.PairID
	Prices      snapshot.View
	Candles     map[candle.Key][]model.Candle
	Trends      map[candle.Key]model.Trend
	Opportunity *model.Opportunity
}

// State is created fresh for every subscription and never reused.
// It is not safe for concurrent use.
type State struct {
	pair        model.PairID
	generation  uint64
	store       *snapshot.Store
	candles     *candle.Set
	opportunity *model.Opportunity
}

// NewState creates an empty State for pair.
func NewState(pair model.PairID, generation uint64, maxCandles int) *State {
	return &State{
		pair:       pair,
		generation: generation,
		store:      snapshot.NewStore(),
		candles:    candle.NewSet(maxCandles),
	}
}

// Apply folds a classified message into the state.
func (s *State) Apply(msg feed.Message, receivedAt time.Time) Update {
	switch msg.Kind {
	case feed.KindDelta:
		return s.ApplyDelta(msg.Delta, receivedAt)
	default:
		return s.ApplyBulk(msg.Bulk, receivedAt)
	}
}

// ApplyBulk folds ticks oldest first.
func (s *State) ApplyBulk(ticks []model.PriceTick, receivedAt time.Time) Update {
	u := s.fold(feed.KindBulk, ticks, receivedAt)
	u.Opportunity = s.opportunity
	return u
}

// ApplyDelta folds the delta's prices and records its opportunity.
func (s *State) ApplyDelta(d feed.Delta, receivedAt time.Time) Update {
	u := s.fold(feed.KindDelta, d.Prices, receivedAt)
	opp := d.Opportunity
	s.opportunity = &opp
	u.Opportunity = &opp
	return u
}

func (s *State) fold(kind feed.Kind, ticks []model.PriceTick, receivedAt time.Time) Update {
	u := Update{Kind: kind, Pair: s.pair, Generation: s.generation}
	for _, t := range ticks {
		s.store.Set(t.Source, t.Price)
		u.Candles = append(u.Candles, s.candles.Ingest(t, receivedAt))
	}
	u.Prices = s.store.View()
	if opp, ok := arbitrage.Evaluate(u.Prices, s.pair); ok {
		u.Recomputed = &opp
	}
	return u
}

// View copies the current state.
func (s *State) View() View {
	v := View{
		Pair:    s.pair,
		Prices:  s.store.View(),
		Candles: make(map[candle.Key][]model.Candle),
		Trends:  make(map[candle.Key]model.Trend),
	}
	for _, k := range s.candles.Keys() {
		agg, _ := s.candles.Get(k)
		v.Candles[k] = agg.Series()
		v.Trends[k] = agg.Trend()
	}
	if s.opportunity != nil {
		opp := *s.opportunity
		v.Opportunity = &opp
	}
	return v
}
