// Package snapshot keeps the latest observed price per exchange for the
// active pair.
package snapshot

import (
	"arbwatch/internal/model"

	"github.com/shopspring/decimal"
)

// Entry is one exchange's latest price.
type Entry struct {
	Source model.ExchangeID
	Price  decimal.Decimal
}

// Store maps exchange to latest price. Keys are kept in first-insertion order
// so that scans over the snapshot are deterministic.
// A Store is not safe for concurrent use; the owning session serializes access.
type Store struct {
	order  []model.ExchangeID
	prices map[model.ExchangeID]decimal.Decimal
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{prices: make(map[model.ExchangeID]decimal.Decimal)}
}

// Merge applies ticks in order; the last tick for a source wins.
func (s *Store) Merge(ticks []model.PriceTick) {
	for _, t := range ticks {
		s.Set(t.Source, t.Price)
	}
}

// Set records price as the latest for source.
func (s *Store) Set(source model.ExchangeID, price decimal.Decimal) {
	if _, ok := s.prices[source]; !ok {
		s.order = append(s.order, source)
	}
	s.prices[source] = price
}

// Reset clears every entry.
func (s *Store) Reset() {
	s.order = nil
	s.prices = make(map[model.ExchangeID]decimal.Decimal)
}

// Get returns the latest price for source. ok is false when no tick from
// source has been seen since the last reset.
func (s *Store) Get(source model.ExchangeID) (price decimal.Decimal, ok bool) {
	price, ok = s.prices[source]
	return
}

// Len returns the number of exchanges with a price.
func (s *Store) Len() int {
	return len(s.order)
}

// View returns a copy of the snapshot in insertion order.
func (s *Store) View() View {
	v := make(View, 0, len(s.order))
	for _, src := range s.order {
		v = append(v, Entry{Source: src, Price: s.prices[src]})
	}
	return v
}

// View is a read-only, insertion-ordered copy of a Store.
type View []Entry

// Get looks up source in the view.
func (v View) Get(source model.ExchangeID) (decimal.Decimal, bool) {
	for _, e := range v {
		if e.Source == source {
			return e.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// Map returns the view as a map keyed by exchange.
func (v View) Map() map[model.ExchangeID]decimal.Decimal {
	m := make(map[model.ExchangeID]decimal.Decimal, len(v))
	for _, e := range v {
		m[e.Source] = e.Price
	}
	return m
}
