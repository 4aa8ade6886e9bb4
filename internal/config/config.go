package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"arbwatch/internal/model"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Feed      FeedConfig
	History   HistoryConfig
	Candles   CandlesConfig
	Arbitrage ArbitrageConfig
	Database  DatabaseConfig
	Log       LogConfig
}

// FeedConfig defines the streaming feed connection.
type FeedConfig struct {
	URL                string
	Pair               string
	HandshakeTimeoutMS int `mapstructure:"handshake_timeout_ms"`
}

// HistoryConfig defines the historical-data endpoint.
type HistoryConfig struct {
	Enabled           bool
	URL               string
	Sources           []string
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TimeoutMS         int     `mapstructure:"timeout_ms"`
}

// CandlesConfig defines candle retention.
type CandlesConfig struct {
	MaxCandles int `mapstructure:"max_candles"`
}

// ArbitrageConfig defines the arbitrage-related settings.
type ArbitrageConfig struct {
	MinSpreadPercent float64 `mapstructure:"min_spread_percent"`
	TolerancePercent float64 `mapstructure:"tolerance_percent"`
	// JournalBuffer is how many opportunities may wait for the database
	// before new ones are dropped.
	JournalBuffer int `mapstructure:"journal_buffer"`
}

// DatabaseConfig defines the database connection settings.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string
	Format string
}

// ConnString returns a postgres URL for the database settings.
func (d DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.DBName,
	}
	return u.String()
}

// HandshakeTimeout returns the dial handshake timeout.
func (f FeedConfig) HandshakeTimeout() time.Duration {
	return time.Duration(f.HandshakeTimeoutMS) * time.Millisecond
}

// Timeout returns the per-request history timeout.
func (h HistoryConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "ws://127.0.0.1:8081/ws/arb")
	v.SetDefault("feed.pair", "SOL/USDT")
	v.SetDefault("feed.handshake_timeout_ms", 10000)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.url", "http://127.0.0.1:3000/historical")
	v.SetDefault("history.sources", []string{})
	v.SetDefault("history.requests_per_second", 5.0)
	v.SetDefault("history.timeout_ms", 5000)
	v.SetDefault("candles.max_candles", 500)
	v.SetDefault("arbitrage.min_spread_percent", 0.1)
	v.SetDefault("arbitrage.tolerance_percent", 0.01)
	v.SetDefault("arbitrage.journal_buffer", 256)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "arbwatch")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, config.Validate()
}

// Validate checks the settings needed to start a session.
func (c Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if _, err := model.ParsePair(c.Feed.Pair); err != nil {
		return fmt.Errorf("feed.pair: %w", err)
	}
	if c.Candles.MaxCandles <= 0 {
		return errors.New("candles.max_candles must be positive")
	}
	if c.Arbitrage.JournalBuffer <= 0 {
		return errors.New("arbitrage.journal_buffer must be positive")
	}
	if c.History.Enabled && c.History.URL == "" {
		return errors.New("history.url is required when history is enabled")
	}
	return nil
}
