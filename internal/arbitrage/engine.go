package arbitrage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"arbwatch/internal/config"
	"arbwatch/internal/database"
	"arbwatch/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultJournalBuffer = 256
	journalTimeout       = 5 * time.Second
)

// ArbitrageEngine checks feed-supplied opportunities against the locally
// recomputed one and journals those worth keeping.
type ArbitrageEngine struct {
	logger    *slog.Logger
	repo      database.Repository
	minSpread decimal.Decimal
	tolerance decimal.Decimal
	now       func() time.Time

	queue     chan model.JournalEntry
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewArbitrageEngine creates a new instance of the ArbitrageEngine. repo may
// be nil, in which case nothing is journaled. Otherwise a writer goroutine
// runs until Close.
func NewArbitrageEngine(logger *slog.Logger, repo database.Repository, cfg config.ArbitrageConfig) *ArbitrageEngine {
	buffer := cfg.JournalBuffer
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	e := &ArbitrageEngine{
		logger:    logger,
		repo:      repo,
		minSpread: decimal.NewFromFloat(cfg.MinSpreadPercent),
		tolerance: decimal.NewFromFloat(cfg.TolerancePercent),
		now:       time.Now,
		queue:     make(chan model.JournalEntry, buffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if repo != nil {
		go e.runJournal()
	} else {
		close(e.done)
	}
	return e
}

// Close stops the journal writer after it has written every queued entry.
func (e *ArbitrageEngine) Close() {
	e.closeOnce.Do(func() { close(e.stop) })
	<-e.done
}

// Review compares the feed's opportunity with the recomputed one. It reports
// whether the two agree. The feed's value stays authoritative either way.
// Review never waits on the database.
func (e *ArbitrageEngine) Review(feed model.Opportunity, recomputed *model.Opportunity) bool {
	agree := e.agrees(feed, recomputed)
	if !agree {
		attrs := []any{
			"pair", feed.Pair,
			"feedBuy", feed.BestBuySource,
			"feedSell", feed.BestSellSource,
			"feedSpread", feed.SpreadPercent.String(),
		}
		if recomputed != nil {
			attrs = append(attrs,
				"localBuy", recomputed.BestBuySource,
				"localSell", recomputed.BestSellSource,
				"localSpread", recomputed.SpreadPercent.String(),
			)
		}
		e.logger.Warn("Feed opportunity disagrees with local snapshot", attrs...)
	}

	if feed.SpreadPercent.GreaterThanOrEqual(e.minSpread) && feed.BestBuySource != "" {
		e.logger.Info("Arbitrage opportunity",
			"pair", feed.Pair,
			"buyExchange", feed.BestBuySource,
			"sellExchange", feed.BestSellSource,
			"buyPrice", feed.BestBuyPrice.String(),
			"sellPrice", feed.BestSellPrice.String(),
			"spreadPercent", feed.SpreadPercent.StringFixed(4),
		)
		e.journal(feed)
	}
	return agree
}

func (e *ArbitrageEngine) agrees(feed model.Opportunity, recomputed *model.Opportunity) bool {
	if recomputed == nil {
		return false
	}
	if feed.BestBuySource != recomputed.BestBuySource || feed.BestSellSource != recomputed.BestSellSource {
		// Equal prices on several venues make the venue choice arbitrary.
		if !feed.BestBuyPrice.Equal(recomputed.BestBuyPrice) || !feed.BestSellPrice.Equal(recomputed.BestSellPrice) {
			return false
		}
	}
	return feed.SpreadPercent.Sub(recomputed.SpreadPercent).Abs().LessThanOrEqual(e.tolerance)
}

func (e *ArbitrageEngine) journal(opp model.Opportunity) {
	if e.repo == nil {
		return
	}
	entry := model.JournalEntry{
		ID:            uuid.NewString(),
		ObservedAt:    e.now(),
		Pair:          opp.Pair.String(),
		BuySource:     string(opp.BestBuySource),
		BuyPrice:      opp.BestBuyPrice,
		SellSource:    string(opp.BestSellSource),
		SellPrice:     opp.BestSellPrice,
		SpreadPercent: opp.SpreadPercent,
	}
	select {
	case e.queue <- entry:
	default:
		e.logger.Warn("Journal queue full, dropping opportunity", "pair", entry.Pair, "id", entry.ID)
	}
}

func (e *ArbitrageEngine) runJournal() {
	defer close(e.done)
	for {
		select {
		case entry := <-e.queue:
			e.write(entry)
		case <-e.stop:
			for {
				select {
				case entry := <-e.queue:
					e.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (e *ArbitrageEngine) write(entry model.JournalEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := e.repo.LogOpportunity(ctx, entry); err != nil {
		e.logger.Error("Failed to journal opportunity", "id", entry.ID, "error", err)
	}
}
