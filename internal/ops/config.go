// Package ops holds the runtime configuration shared by every process
// in the pipeline. One config file describes the whole deployment so
// the four binaries agree on ports, symbols, and tuning.
package ops

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"main/internal/schema"
)

// Duration parses YAML values like "100ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// FeedConfig describes the gateway side: generators and broadcast taps.
type FeedConfig struct {
	PriceAddr         string             `yaml:"priceAddr"`
	SentimentAddr     string             `yaml:"sentimentAddr"`
	InitialPrices     map[string]float64 `yaml:"initialPrices"`
	Volatility        float64            `yaml:"volatility"`
	TickInterval      Duration           `yaml:"tickInterval"`
	SentimentInterval Duration           `yaml:"sentimentInterval"`
	Seed              int64              `yaml:"seed"`
}

// StoreConfig names the shared-memory segment symbols live in.
type StoreConfig struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
}

// BridgeConfig tunes the feed-to-store client.
type BridgeConfig struct {
	ReconnectAttempts int      `yaml:"reconnectAttempts"`
	ReconnectDelay    Duration `yaml:"reconnectDelay"`
}

// StrategyConfig tunes the signal engine.
type StrategyConfig struct {
	ShortWindow      int      `yaml:"shortWindow"`
	LongWindow       int      `yaml:"longWindow"`
	BullishThreshold int      `yaml:"bullishThreshold"`
	BearishThreshold int      `yaml:"bearishThreshold"`
	OrderQty         int64    `yaml:"orderQty"`
	Interval         Duration `yaml:"interval"`
}

// OrderManagerConfig describes the trade-log server.
type OrderManagerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the full deployment description.
type Config struct {
	Feed         FeedConfig         `yaml:"feed"`
	Store        StoreConfig        `yaml:"store"`
	Bridge       BridgeConfig       `yaml:"bridge"`
	Strategy     StrategyConfig     `yaml:"strategy"`
	OrderManager OrderManagerConfig `yaml:"orderManager"`
	RunDuration  Duration           `yaml:"runDuration"`
	Profiling    ProfilingConfig    `yaml:"profiling"`
}

// ProfilingConfig enables the optional continuous profiler.
type ProfilingConfig struct {
	Enable    bool   `yaml:"enable"`
	ServerURL string `yaml:"serverUrl"`
}

// Default returns the configuration every binary starts from when no
// file is given.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			PriceAddr:     "127.0.0.1:5001",
			SentimentAddr: "127.0.0.1:5002",
			InitialPrices: map[string]float64{
				"AAPL":  150.0,
				"MSFT":  300.0,
				"GOOGL": 140.0,
				"AMZN":  130.0,
				"META":  280.0,
			},
			Volatility:        0.001,
			TickInterval:      Duration(100 * time.Millisecond),
			SentimentInterval: Duration(100 * time.Millisecond),
		},
		Store: StoreConfig{
			Name:    "pricestore",
			Symbols: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"},
		},
		Bridge: BridgeConfig{
			ReconnectAttempts: 5,
			ReconnectDelay:    Duration(500 * time.Millisecond),
		},
		Strategy: StrategyConfig{
			ShortWindow:      5,
			LongWindow:       20,
			BullishThreshold: 60,
			BearishThreshold: 40,
			OrderQty:         10,
			Interval:         Duration(100 * time.Millisecond),
		},
		OrderManager: OrderManagerConfig{
			Addr: "127.0.0.1:5003",
		},
		RunDuration: Duration(30 * time.Second),
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the cross-field invariants a single process cannot
// recover from at runtime.
func (c Config) Validate() error {
	if c.Feed.PriceAddr == "" || c.Feed.SentimentAddr == "" || c.OrderManager.Addr == "" {
		return fmt.Errorf("every listen address must be set")
	}
	if c.Feed.Volatility < 0 {
		return fmt.Errorf("volatility must be >= 0")
	}
	if c.Feed.TickInterval <= 0 || c.Feed.SentimentInterval <= 0 {
		return fmt.Errorf("feed intervals must be positive")
	}
	if c.Store.Name == "" {
		return fmt.Errorf("store name is empty")
	}
	if len(c.Store.Symbols) == 0 {
		return fmt.Errorf("store symbol list is empty")
	}
	for _, sym := range c.Store.Symbols {
		if _, ok := c.Feed.InitialPrices[sym]; !ok {
			return fmt.Errorf("no initial price for symbol %s", sym)
		}
	}
	if c.Bridge.ReconnectAttempts < 1 {
		return fmt.Errorf("reconnect attempts must be >= 1")
	}
	if c.Strategy.ShortWindow <= 0 || c.Strategy.ShortWindow >= c.Strategy.LongWindow {
		return fmt.Errorf("strategy windows must satisfy 0 < short < long")
	}
	if c.Strategy.BearishThreshold > c.Strategy.BullishThreshold {
		return fmt.Errorf("bearish threshold must not exceed bullish")
	}
	if c.Strategy.BullishThreshold > int(schema.SentimentMax) || c.Strategy.BearishThreshold < int(schema.SentimentMin) {
		return fmt.Errorf("thresholds must lie within the sentiment scale")
	}
	if c.Strategy.OrderQty <= 0 {
		return fmt.Errorf("order qty must be > 0")
	}
	if c.Strategy.Interval <= 0 {
		return fmt.Errorf("strategy interval must be positive")
	}
	if c.RunDuration <= 0 {
		return fmt.Errorf("run duration must be positive")
	}
	if c.Profiling.Enable && c.Profiling.ServerURL == "" {
		return fmt.Errorf("profiling enabled without server url")
	}
	return nil
}
