package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side describes order direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// String renders the side in wire form.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide converts the wire form back into a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	default:
		return SideUnknown, false
	}
}

// Signal is the outcome of a strategy evaluation.
type Signal uint16

const (
	SignalNeutral Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "NEUTRAL"
	}
}

// Side converts an actionable signal into an order side.
func (s Signal) Side() Side {
	switch s {
	case SignalBuy:
		return SideBuy
	case SignalSell:
		return SideSell
	default:
		return SideUnknown
	}
}

// Position is the market exposure held by a single strategy instance.
type Position uint16

const (
	PositionFlat Position = iota
	PositionLong
	PositionShort
)

func (p Position) String() string {
	switch p {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "flat"
	}
}

// PriceTick is a single symbol price observation from the feed.
type PriceTick struct {
	Symbol string
	Price  float64
}

// Sentiment is the aggregate news mood, always in [0, 100].
type Sentiment int

const (
	SentimentMin     Sentiment = 0
	SentimentNeutral Sentiment = 50
	SentimentMax     Sentiment = 100
)

// Clamp bounds the value to the valid sentiment range.
func (s Sentiment) Clamp() Sentiment {
	if s < SentimentMin {
		return SentimentMin
	}
	if s > SentimentMax {
		return SentimentMax
	}
	return s
}

// Order is a single trade instruction. It is immutable after send.
type Order struct {
	ID     uint64
	Side   Side
	Qty    int64
	Symbol string
	Price  float64
}

// Notional returns quantity times price in exact decimal form.
func (o Order) Notional() decimal.Decimal {
	return decimal.NewFromInt(o.Qty).Mul(decimal.NewFromFloat(o.Price))
}

// TradeRecord is an accepted order plus the server-assigned timestamp.
type TradeRecord struct {
	Order
	ReceivedAt time.Time
}
