// Package mdg produces synthetic market data: random-walk prices and a
// drifting news-sentiment scalar. Generators are deterministic in shape
// and accept a seeded source for reproducible tests.
package mdg

import (
	"math/rand"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// floorPrice keeps a random walk from reaching zero or below.
const floorPrice = 0.01

// PriceGenerator advances a multiplicative Gaussian random walk for a
// fixed symbol set.
type PriceGenerator struct {
	symbols    []string
	prices     map[string]float64
	volatility float64
	rng        *rand.Rand
}

// NewPriceGenerator creates a generator seeded with initial prices.
// Volatility is the standard deviation of the per-tick percentage change.
func NewPriceGenerator(symbols []string, initial map[string]float64, volatility float64, seed int64) (*PriceGenerator, error) {
	if len(symbols) == 0 {
		return nil, errors.New("price generator: no symbols")
	}
	if volatility < 0 {
		return nil, errors.New("price generator: negative volatility")
	}

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		price, ok := initial[symbol]
		if !ok || price <= 0 {
			return nil, errors.New("price generator: missing initial price").With("symbol", symbol)
		}
		prices[symbol] = price
	}

	return &PriceGenerator{
		symbols:    append([]string(nil), symbols...),
		prices:     prices,
		volatility: volatility,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Tick advances every symbol one step and returns the new prices.
// The returned map is a copy.
func (g *PriceGenerator) Tick() map[string]float64 {
	out := make(map[string]float64, len(g.symbols))
	for _, symbol := range g.symbols {
		change := g.rng.NormFloat64() * g.volatility
		next := g.prices[symbol] * (1 + change)
		if next < floorPrice {
			next = floorPrice
		}
		g.prices[symbol] = next
		out[symbol] = next
	}
	return out
}

// Symbols returns the tracked symbol set in generation order.
func (g *PriceGenerator) Symbols() []string {
	return append([]string(nil), g.symbols...)
}

// Ticks converts the current prices into wire-ready price ticks in
// symbol order.
func (g *PriceGenerator) Ticks() []schema.PriceTick {
	ticks := make([]schema.PriceTick, 0, len(g.symbols))
	for _, symbol := range g.symbols {
		ticks = append(ticks, schema.PriceTick{Symbol: symbol, Price: g.prices[symbol]})
	}
	return ticks
}
