package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeID identifies a price source. It is used as a map key and must be
// stable for the lifetime of a subscription.
type ExchangeID string

// PairID identifies a market as "BASE/QUOTE" in upper case.
type PairID string

// ParsePair normalizes s into a PairID. "/", "-" and "_" are accepted as
// separators and case is ignored.
func ParsePair(s string) (PairID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '_'
	})
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid pair %q: expected BASE/QUOTE", s)
	}
	return PairID(parts[0] + "/" + parts[1]), nil
}

// Base returns the base asset symbol.
func (p PairID) Base() string {
	base, _, _ := strings.Cut(string(p), "/")
	return base
}

// Quote returns the quote asset symbol.
func (p PairID) Quote() string {
	_, quote, _ := strings.Cut(string(p), "/")
	return quote
}

func (p PairID) String() string {
	return string(p)
}

// PriceTick represents a single observed price from one exchange.
// ObservedAt is zero when the feed did not carry a timestamp.
type PriceTick struct {
	Source     ExchangeID
	Pair       PairID
	Price      decimal.Decimal
	ObservedAt time.Time
}

// Time returns the tick's observation time, falling back to receivedAt.
func (t PriceTick) Time(receivedAt time.Time) time.Time {
	if t.ObservedAt.IsZero() {
		return receivedAt
	}
	return t.ObservedAt
}

// Candle is an OHLC bar for one second-resolution bucket.
type Candle struct {
	BucketTime time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
}

// Trend is the direction of the most recent price move.
type Trend int

const (
	TrendNone Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "none"
	}
}

// Opportunity is the best cross-exchange spread for a pair.
type Opportunity struct {
	Pair           PairID
	BestBuySource  ExchangeID
	BestBuyPrice   decimal.Decimal
	BestSellSource ExchangeID
	BestSellPrice  decimal.Decimal
	SpreadPercent  decimal.Decimal
}

// JournalEntry represents an opportunity recorded to the journal.
type JournalEntry struct {
	ID            string          `db:"id"`
	ObservedAt    time.Time       `db:"observed_at"`
	Pair          string          `db:"pair"`
	BuySource     string          `db:"buy_source"`
	BuyPrice      decimal.Decimal `db:"buy_price"`
	SellSource    string          `db:"sell_source"`
	SellPrice     decimal.Decimal `db:"sell_price"`
	SpreadPercent decimal.Decimal `db:"spread_percent"`
}
