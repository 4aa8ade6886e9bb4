// Package stream owns the feed connection: one subscription at a time, with
// every piece of per-subscription state created fresh on Open.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"arbwatch/internal/candle"
	"arbwatch/internal/feed"
	"arbwatch/internal/history"
	"arbwatch/internal/market"
	"arbwatch/internal/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultHistoryConcurrency = 4

// Handler receives session events. Callbacks run one at a time in arrival
// order and may call Status or View, but must not call Open or Close.
// Any callback may be nil.
type Handler struct {
	OnSnapshot     func(market.Update)
	OnDelta        func(market.Update)
	OnStatusChange func(status Status, err error)
}

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithHistory backfills each subscription from f for the given sources.
func WithHistory(f history.Fetcher, sources ...model.ExchangeID) Option {
	return func(s *Session) {
		s.history = f
		s.historySources = sources
	}
}

// WithMaxCandles bounds each candle series.
func WithMaxCandles(n int) Option {
	return func(s *Session) { s.maxCandles = n }
}

// WithClock replaces the receipt-time clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session manages exactly one logical subscription to the feed at url.
type Session struct {
	url            string
	dialer         Dialer
	handler        Handler
	logger         *slog.Logger
	history        history.Fetcher
	historySources []model.ExchangeID
	maxCandles     int
	now            func() time.Time

	// dispatchMu serializes state changes together with their callbacks.
	dispatchMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	status     Status
	state      *market.State
	conn       Conn
	cancel     context.CancelFunc
	readerDone chan struct{}
}

// NewSession creates a disconnected Session.
func NewSession(url string, handler Handler, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		url:        url,
		dialer:     WebsocketDialer{},
		handler:    handler,
		logger:     logger,
		maxCandles: candle.DefaultMaxCandles,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open subscribes to pair, tearing down any existing connection first. The
// previous subscription's state is dropped and a new one started. Open
// returns once the subscription intent has been sent.
func (s *Session) Open(ctx context.Context, pair model.PairID) error {
	pair, err := model.ParsePair(string(pair))
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.gen++
	gen := s.gen
	prevConn, prevCancel, prevDone := s.detachLocked()
	s.state = market.NewState(pair, gen, s.maxCandles)
	s.cancel = cancel
	s.mu.Unlock()

	s.release(prevConn, prevCancel, prevDone)

	logger := s.logger.With("subscription", uuid.NewString(), "pair", pair)
	s.transition(gen, StatusConnecting, nil)

	conn, err := s.dialer.Dial(ctx, s.url)
	if !s.current(gen) {
		cancel()
		if err == nil {
			conn.Close()
		}
		logger.Debug("Dropping superseded connection")
		return ErrSuperseded
	}
	if err != nil {
		cancel()
		terr := &TransportError{Op: "dial", Err: err}
		logger.Error("Feed connection failed", "url", s.url, "error", err)
		s.fail(gen, StatusError, terr)
		return terr
	}

	if err := conn.WriteJSON(feed.NewSubscriptionIntent(pair)); err != nil {
		cancel()
		conn.Close()
		if !s.current(gen) {
			return ErrSuperseded
		}
		terr := &TransportError{Op: "subscribe", Err: err}
		logger.Error("Failed to send subscription", "error", err)
		s.fail(gen, StatusError, terr)
		return terr
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		conn.Close()
		return ErrSuperseded
	}
	done := make(chan struct{})
	s.conn = conn
	s.readerDone = done
	s.mu.Unlock()

	logger.Info("Subscribed to feed", "url", s.url)
	s.transition(gen, StatusSubscribed, nil)

	go s.readLoop(gen, conn, done, logger)
	s.backfill(subCtx, gen, pair, logger)
	return nil
}

// Close releases the connection. No message is processed after Close
// returns. Close is safe to call repeatedly and before Open.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.status
	conn, cancel, done := s.detachLocked()
	s.mu.Unlock()

	s.release(conn, cancel, done)

	if prev != StatusDisconnected {
		s.transition(gen, StatusDisconnected, nil)
		return
	}
	// Wait out any dispatch that passed its generation check before the bump.
	s.dispatchMu.Lock()
	s.dispatchMu.Unlock()
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// View returns a copy of the active subscription's state. ok is false before
// the first Open.
func (s *Session) View() (v market.View, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return market.View{}, false
	}
	return s.state.View(), true
}

func (s *Session) detachLocked() (Conn, context.CancelFunc, chan struct{}) {
	conn, cancel, done := s.conn, s.cancel, s.readerDone
	s.conn, s.cancel, s.readerDone = nil, nil, nil
	return conn, cancel, done
}

func (s *Session) release(conn Conn, cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Closing feed connection", "error", err)
		}
	}
	if done != nil {
		<-done
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// transition sets the status if gen is still current and notifies the handler.
func (s *Session) transition(gen uint64, status Status, err error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()

	if s.handler.OnStatusChange != nil {
		s.handler.OnStatusChange(status, err)
	}
}

// fail ends the subscription identified by gen. Its state stays viewable but
// nothing further is applied to it.
func (s *Session) fail(gen uint64, status Status, err error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.status = status
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.conn = nil
	s.readerDone = nil
	s.mu.Unlock()

	if s.handler.OnStatusChange != nil {
		s.handler.OnStatusChange(status, err)
	}
}

// dispatch applies fn to the state of subscription gen and hands the result
// to the handler. It returns ErrStaleResult when gen is no longer current.
func (s *Session) dispatch(gen uint64, fn func(*market.State) market.Update) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || s.state == nil {
		s.mu.Unlock()
		return ErrStaleResult
	}
	u := fn(s.state)
	s.mu.Unlock()

	switch u.Kind {
	case feed.KindDelta:
		if s.handler.OnDelta != nil {
			s.handler.OnDelta(u)
		}
	default:
		if s.handler.OnSnapshot != nil {
			s.handler.OnSnapshot(u)
		}
	}
	return nil
}

func (s *Session) readLoop(gen uint64, conn Conn, done chan struct{}, logger *slog.Logger) {
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !s.current(gen) {
				return
			}
			conn.Close()
			if cleanClose(err) {
				logger.Info("Feed closed the connection")
				s.fail(gen, StatusDisconnected, nil)
			} else {
				logger.Error("Feed connection lost", "error", err)
				s.fail(gen, StatusError, &TransportError{Op: "read", Err: err})
			}
			return
		}

		receivedAt := s.now()
		msg, err := feed.Decode(raw)
		if err != nil {
			logger.Warn("Dropping feed message", "error", err)
			continue
		}

		err = s.dispatch(gen, func(st *market.State) market.Update {
			return st.Apply(msg, receivedAt)
		})
		if errors.Is(err, ErrStaleResult) {
			return
		}
	}
}

// backfill fetches history for every configured source and applies each
// result as a bulk snapshot, unless the subscription has moved on.
func (s *Session) backfill(ctx context.Context, gen uint64, pair model.PairID, logger *slog.Logger) {
	if s.history == nil || len(s.historySources) == 0 {
		return
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(defaultHistoryConcurrency)
		for _, source := range s.historySources {
			source := source
			g.Go(func() error {
				ticks, err := s.history.Fetch(ctx, pair, source)
				if err != nil {
					if ctx.Err() != nil {
						logger.Debug("History fetch cancelled", "source", source)
					} else {
						logger.Warn("History fetch failed", "source", source, "error", err)
					}
					return nil
				}

				receivedAt := s.now()
				err = s.dispatch(gen, func(st *market.State) market.Update {
					return st.ApplyBulk(ticks, receivedAt)
				})
				if errors.Is(err, ErrStaleResult) {
					logger.Debug("Discarding history", "source", source, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}
