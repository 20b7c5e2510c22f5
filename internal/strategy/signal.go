package strategy

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// SignalGenerator fuses a moving-average-crossover signal with a
// sentiment-threshold signal. The conjunction trades only when both
// sub-signals agree.
type SignalGenerator struct {
	shortWindow      int
	longWindow       int
	bullishThreshold schema.Sentiment
	bearishThreshold schema.Sentiment
}

// NewSignalGenerator validates the windows and thresholds.
func NewSignalGenerator(shortWindow, longWindow int, bullish, bearish schema.Sentiment) (*SignalGenerator, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return nil, errors.New("signal: windows must be positive")
	}
	if shortWindow >= longWindow {
		return nil, errors.New("signal: short window must be less than long window").
			With("short", shortWindow).With("long", longWindow)
	}
	if bearish > bullish {
		return nil, errors.New("signal: bearish threshold above bullish").
			With("bullish", int(bullish)).With("bearish", int(bearish))
	}
	return &SignalGenerator{
		shortWindow:      shortWindow,
		longWindow:       longWindow,
		bullishThreshold: bullish,
		bearishThreshold: bearish,
	}, nil
}

// LongWindow returns the long moving-average window size.
func (g *SignalGenerator) LongWindow() int {
	return g.longWindow
}

// PriceSignal compares the short and long moving averages. Insufficient
// history or equal averages yield NEUTRAL.
func (g *SignalGenerator) PriceSignal(history *History) schema.Signal {
	short, ok := history.MovingAverage(g.shortWindow)
	if !ok {
		return schema.SignalNeutral
	}
	long, ok := history.MovingAverage(g.longWindow)
	if !ok {
		return schema.SignalNeutral
	}

	switch {
	case short > long:
		return schema.SignalBuy
	case short < long:
		return schema.SignalSell
	default:
		return schema.SignalNeutral
	}
}

// SentimentSignal maps the news mood onto a signal via the thresholds.
func (g *SignalGenerator) SentimentSignal(s schema.Sentiment) schema.Signal {
	switch {
	case s > g.bullishThreshold:
		return schema.SignalBuy
	case s < g.bearishThreshold:
		return schema.SignalSell
	default:
		return schema.SignalNeutral
	}
}

// Combine returns BUY or SELL only when both sub-signals agree, NEUTRAL
// for every other combination.
func (g *SignalGenerator) Combine(price, sentiment schema.Signal) schema.Signal {
	if price == sentiment && price != schema.SignalNeutral {
		return price
	}
	return schema.SignalNeutral
}

// ShouldExecute is the position-aware admission gate: NEUTRAL never
// trades, BUY only when not already long, SELL only when not already
// short.
func ShouldExecute(signal schema.Signal, position schema.Position) bool {
	switch signal {
	case schema.SignalBuy:
		return position != schema.PositionLong
	case schema.SignalSell:
		return position != schema.PositionShort
	default:
		return false
	}
}
