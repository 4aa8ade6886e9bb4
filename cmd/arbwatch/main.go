package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arbwatch/internal/arbitrage"
	"arbwatch/internal/config"
	"arbwatch/internal/database"
	"arbwatch/internal/history"
	"arbwatch/internal/logging"
	"arbwatch/internal/model"
	"arbwatch/internal/stream"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("arbwatch stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pair, err := model.ParsePair(cfg.Feed.Pair)
	if err != nil {
		return err
	}

	var repo database.Repository
	if cfg.Database.Enabled {
		pg, err := database.NewPostgresRepository(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		repo = pg
	}

	engine := arbitrage.NewArbitrageEngine(logger, repo, cfg.Arbitrage)
	defer engine.Close()
	r := newRenderer(logger, engine)

	opts := []stream.Option{
		stream.WithDialer(stream.WebsocketDialer{HandshakeTimeout: cfg.Feed.HandshakeTimeout()}),
		stream.WithMaxCandles(cfg.Candles.MaxCandles),
	}
	if cfg.History.Enabled && len(cfg.History.Sources) > 0 {
		hc := history.NewClient(cfg.History.URL, logger,
			history.WithHTTPClient(&http.Client{Timeout: cfg.History.Timeout()}),
			history.WithRateLimit(cfg.History.RequestsPerSecond))
		sources := make([]model.ExchangeID, 0, len(cfg.History.Sources))
		for _, s := range cfg.History.Sources {
			sources = append(sources, model.ExchangeID(s))
		}
		opts = append(opts, stream.WithHistory(hc, sources...))
	}

	session := stream.NewSession(cfg.Feed.URL, r.handler(), logger, opts...)
	defer session.Close()

	if err := session.Open(ctx, pair); err != nil {
		return fmt.Errorf("open %s: %w", pair, err)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	case err := <-r.ended:
		return err
	}
}
