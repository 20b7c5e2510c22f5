package ordermanager

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

// Summary aggregates every trade the log has seen.
type Summary struct {
	TotalTrades   int
	BuyCount      int
	SellCount     int
	SymbolsTraded []string
	TotalVolume   int64
	TotalValue    decimal.Decimal
}

// TradeLog is an append-only in-memory record of accepted orders,
// shared between connection handlers.
type TradeLog struct {
	mu      sync.Mutex
	records []schema.TradeRecord
}

// NewTradeLog returns an empty log.
func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Append records an order with its arrival time.
func (l *TradeLog) Append(order schema.Order) schema.TradeRecord {
	rec := schema.TradeRecord{Order: order, ReceivedAt: time.Now()}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return rec
}

// Len reports the number of recorded trades.
func (l *TradeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of the log in arrival order.
func (l *TradeLog) Records() []schema.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schema.TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Summarize walks the log once. Notional value accumulates in decimal
// to keep the session total exact.
func (l *TradeLog) Summarize() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	sum := Summary{TotalValue: decimal.Zero}
	seen := make(map[string]struct{})
	for _, rec := range l.records {
		sum.TotalTrades++
		switch rec.Side {
		case schema.SideBuy:
			sum.BuyCount++
		case schema.SideSell:
			sum.SellCount++
		}
		if _, ok := seen[rec.Symbol]; !ok {
			seen[rec.Symbol] = struct{}{}
			sum.SymbolsTraded = append(sum.SymbolsTraded, rec.Symbol)
		}
		sum.TotalVolume += rec.Qty
		sum.TotalValue = sum.TotalValue.Add(rec.Notional())
	}
	sort.Strings(sum.SymbolsTraded)
	return sum
}
