// Package feed decodes the arbitrage feed's wire messages.
//
// The feed sends two shapes over the same connection: a JSON array of recent
// ticks (a bulk snapshot) or an object carrying the latest per-exchange
// prices together with a pre-computed opportunity (a live delta). Decode turns
// a raw frame into a Message whose Kind says which one it was.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"arbwatch/internal/model"

	"github.com/shopspring/decimal"
)

// Kind tags a decoded Message.
type Kind int

const (
	KindBulk Kind = iota + 1
	KindDelta
)

func (k Kind) String() string {
	switch k {
	case KindBulk:
		return "bulk"
	case KindDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// Message is a classified feed message. Exactly one of Bulk or Delta is
// meaningful, as indicated by Kind.
type Message struct {
	Kind  Kind
	Bulk  []model.PriceTick
	Delta Delta
}

// Delta is a live update.
type Delta struct {
	Prices      []model.PriceTick
	Opportunity model.Opportunity
}

type wireTick struct {
	Source    string           `json:"source"`
	Pair      string           `json:"pair"`
	Price     *decimal.Decimal `json:"price"`
	Timestamp string           `json:"timestamp,omitempty"`
}

type wireOpportunity struct {
	Pair           string          `json:"pair"`
	BestBuySource  string          `json:"best_buy_source"`
	BestBuyPrice   decimal.Decimal `json:"best_buy_price"`
	BestSellSource string          `json:"best_sell_source"`
	BestSellPrice  decimal.Decimal `json:"best_sell_price"`
	SpreadPercent  decimal.Decimal `json:"spread_percent"`
}

type wireDelta struct {
	Prices      *[]wireTick      `json:"prices"`
	Opportunity *wireOpportunity `json:"opportunity"`
}

// Decode classifies raw. It returns a *DecodeError for malformed JSON and a
// *ClassificationError for any other shape or an invalid tick. On error no
// part of the message is usable.
func Decode(raw []byte) (Message, error) {
	if !json.Valid(raw) {
		var v any
		return Message{}, &DecodeError{Err: json.Unmarshal(raw, &v)}
	}

	switch firstByte(raw) {
	case '[':
		var wire []wireTick
		if err := json.Unmarshal(raw, &wire); err != nil {
			return Message{}, &ClassificationError{Reason: "array is not a tick sequence", Err: err}
		}
		ticks, err := convertTicks(wire)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindBulk, Bulk: ticks}, nil

	case '{':
		var wire wireDelta
		if err := json.Unmarshal(raw, &wire); err != nil {
			return Message{}, &ClassificationError{Reason: "object is not a live delta", Err: err}
		}
		if wire.Prices == nil || wire.Opportunity == nil {
			return Message{}, &ClassificationError{Reason: "object lacks prices or opportunity"}
		}
		ticks, err := convertTicks(*wire.Prices)
		if err != nil {
			return Message{}, err
		}
		opp := convertOpportunity(*wire.Opportunity)
		return Message{Kind: KindDelta, Delta: Delta{Prices: ticks, Opportunity: opp}}, nil

	default:
		return Message{}, &ClassificationError{Reason: "neither array nor object"}
	}
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimLeft(raw, " \t\r\n")
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func convertTicks(wire []wireTick) ([]model.PriceTick, error) {
	ticks := make([]model.PriceTick, 0, len(wire))
	for i, w := range wire {
		t, err := convertTick(w)
		if err != nil {
			return nil, &ClassificationError{Reason: fmt.Sprintf("tick %d", i), Err: err}
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

func convertTick(w wireTick) (model.PriceTick, error) {
	if strings.TrimSpace(w.Source) == "" {
		return model.PriceTick{}, fmt.Errorf("missing source")
	}
	if w.Price == nil || !w.Price.IsPositive() {
		return model.PriceTick{}, fmt.Errorf("price must be positive")
	}
	pair, err := model.ParsePair(w.Pair)
	if err != nil {
		return model.PriceTick{}, err
	}
	tick := model.PriceTick{
		Source: model.ExchangeID(w.Source),
		Pair:   pair,
		Price:  *w.Price,
	}
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return model.PriceTick{}, fmt.Errorf("timestamp: %w", err)
		}
		tick.ObservedAt = ts
	}
	return tick, nil
}

// convertOpportunity keeps the feed's pair label as sent when it does not
// parse, so the delta's prices still apply.
func convertOpportunity(w wireOpportunity) model.Opportunity {
	pair, err := model.ParsePair(w.Pair)
	if err != nil {
		pair = model.PairID(strings.TrimSpace(w.Pair))
	}
	return model.Opportunity{
		Pair:           pair,
		BestBuySource:  model.ExchangeID(w.BestBuySource),
		BestBuyPrice:   w.BestBuyPrice,
		BestSellSource: model.ExchangeID(w.BestSellSource),
		BestSellPrice:  w.BestSellPrice,
		SpreadPercent:  w.SpreadPercent,
	}
}
