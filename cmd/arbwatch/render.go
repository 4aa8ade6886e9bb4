package main

import (
	"errors"
	"log/slog"

	"arbwatch/internal/arbitrage"
	"arbwatch/internal/market"
	"arbwatch/internal/stream"
)

var errFeedClosed = errors.New("feed closed the connection")

// renderer is the display side of the session: it writes every update to the
// log and passes feed opportunities to the engine.
type renderer struct {
	logger *slog.Logger
	engine *arbitrage.ArbitrageEngine
	ended  chan error
}

func newRenderer(logger *slog.Logger, engine *arbitrage.ArbitrageEngine) *renderer {
	return &renderer{logger: logger, engine: engine, ended: make(chan error, 1)}
}

func (r *renderer) handler() stream.Handler {
	return stream.Handler{
		OnSnapshot:     r.onSnapshot,
		OnDelta:        r.onDelta,
		OnStatusChange: r.onStatus,
	}
}

func (r *renderer) onSnapshot(u market.Update) {
	r.logger.Info("Snapshot", "pair", u.Pair, "ticks", len(u.Candles), "venues", len(u.Prices))
	r.logCandles(u)
}

func (r *renderer) onDelta(u market.Update) {
	attrs := []any{"pair", u.Pair}
	for _, p := range u.Prices {
		attrs = append(attrs, string(p.Source), p.Price.StringFixed(4))
	}
	r.logger.Info("Prices", attrs...)
	r.logCandles(u)

	if u.Opportunity != nil {
		r.engine.Review(*u.Opportunity, u.Recomputed)
	}
}

func (r *renderer) logCandles(u market.Update) {
	for _, c := range u.Candles {
		if c.Closed == nil {
			continue
		}
		r.logger.Debug("Candle closed",
			"source", c.Source,
			"pair", c.Pair,
			"time", c.Closed.BucketTime,
			"open", c.Closed.Open.String(),
			"high", c.Closed.High.String(),
			"low", c.Closed.Low.String(),
			"close", c.Closed.Close.String(),
			"trend", c.Trend.String(),
		)
	}
}

func (r *renderer) onStatus(status stream.Status, err error) {
	if err != nil {
		r.logger.Warn("Connection status", "status", status.String(), "error", err)
	} else {
		r.logger.Info("Connection status", "status", status.String())
	}

	switch status {
	case stream.StatusError:
		r.end(err)
	case stream.StatusDisconnected:
		r.end(errFeedClosed)
	}
}

func (r *renderer) end(err error) {
	select {
	case r.ended <- err:
	default:
	}
}
