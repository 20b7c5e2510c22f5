package strategy

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/obs"
	"main/internal/pricestore"
	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/framing"
)

const (
	dialTimeout       = 3 * time.Second
	sentimentReadSize = 512
)

// Config wires a signal engine to its upstreams.
type Config struct {
	SentimentAddr    string
	OrderManagerAddr string

	ShortWindow      int
	LongWindow       int
	BullishThreshold schema.Sentiment
	BearishThreshold schema.Sentiment

	OrderQty int64
}

// Strategy reads prices from the shared store and sentiment from the
// gateway feed, fuses them into signals and streams admitted orders to
// the order manager. One instance tracks one position per symbol.
type Strategy struct {
	cfg    Config
	store  *pricestore.Store
	gen    *SignalGenerator
	seq    *obs.Sequence
	metric *obs.Metrics

	histories map[string]*History
	positions map[string]schema.Position
	sentiment atomic.Int64

	sentimentConn net.Conn
	sentimentLost bool
	orderConn     net.Conn
	framer        *framing.Framer
	readBuf       []byte
	orderBuf      []byte
}

// New validates the configuration against the store.
func New(cfg Config, store *pricestore.Store, metrics *obs.Metrics) (*Strategy, error) {
	if store == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "strategy requires a price store")
	}
	if cfg.OrderQty <= 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "order quantity must be positive").
			With("qty", cfg.OrderQty)
	}
	gen, err := NewSignalGenerator(cfg.ShortWindow, cfg.LongWindow, cfg.BullishThreshold, cfg.BearishThreshold)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		cfg:       cfg,
		store:     store,
		gen:       gen,
		seq:       obs.NewSequence(),
		metric:    metrics,
		histories: make(map[string]*History, len(store.Symbols())),
		positions: make(map[string]schema.Position, len(store.Symbols())),
		framer:    framing.New(),
		readBuf:   make([]byte, sentimentReadSize),
		orderBuf:  make([]byte, 0, 64),
	}
	for _, sym := range store.Symbols() {
		s.histories[sym] = NewHistory(gen.LongWindow())
		s.positions[sym] = schema.PositionFlat
	}
	s.sentiment.Store(int64(schema.SentimentNeutral))
	return s, nil
}

// Connect dials both upstreams. A failure on either is fatal for the
// strategy: without sentiment or an order sink there is nothing to run.
func (s *Strategy) Connect() error {
	conn, err := net.DialTimeout("tcp", s.cfg.SentimentAddr, dialTimeout)
	if err != nil {
		return errors.Wrap(err, "dial sentiment feed").With("addr", s.cfg.SentimentAddr)
	}
	s.sentimentConn = conn

	conn, err = net.DialTimeout("tcp", s.cfg.OrderManagerAddr, dialTimeout)
	if err != nil {
		_ = s.sentimentConn.Close()
		s.sentimentConn = nil
		return errors.Wrap(err, "dial order manager").With("addr", s.cfg.OrderManagerAddr)
	}
	s.orderConn = conn
	s.sentimentLost = false
	s.framer.Reset()

	logs.Infof("strategy connected, sentiment=%s orders=%s", s.cfg.SentimentAddr, s.cfg.OrderManagerAddr)
	return nil
}

// Close tears down both connections. Safe to call repeatedly.
func (s *Strategy) Close() {
	if s.sentimentConn != nil {
		_ = s.sentimentConn.Close()
		s.sentimentConn = nil
	}
	if s.orderConn != nil {
		_ = s.orderConn.Close()
		s.orderConn = nil
	}
}

// Sentiment returns the most recently drained sentiment value.
func (s *Strategy) Sentiment() schema.Sentiment {
	return schema.Sentiment(s.sentiment.Load())
}

// Position reports the current position for a symbol.
func (s *Strategy) Position(symbol string) schema.Position {
	return s.positions[symbol]
}

// drainSentiment pulls whatever the feed has buffered without blocking
// and keeps only the newest complete value. Frames that fail to decode
// are dropped. A closed feed is logged once; the engine keeps trading
// on the last received value.
func (s *Strategy) drainSentiment() {
	if s.sentimentConn == nil || s.sentimentLost {
		return
	}
	if err := s.sentimentConn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return
	}
	for {
		n, err := s.sentimentConn.Read(s.readBuf)
		if n > 0 {
			s.framer.Add(s.readBuf[:n])
		}
		if err == nil && n > 0 {
			continue
		}
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			break
		}
		// EOF, another error, or an empty read: the feed is gone.
		s.sentimentLost = true
		logs.Warnf("sentiment feed disconnected (%v), keeping last value %d", err, s.sentiment.Load())
		break
	}
	for _, frame := range s.framer.Drain() {
		v, err := codec.DecodeSentiment(frame)
		if err != nil {
			s.metric.IncFrameDropped()
			continue
		}
		s.metric.IncFrameDecoded()
		s.sentiment.Store(int64(v))
	}
}

// Step runs one evaluation pass over every symbol: update histories
// from the store, fuse signals, and send admitted orders. A send
// failure is returned so the caller can stop the run.
func (s *Strategy) Step() error {
	s.drainSentiment()
	mood := s.Sentiment()
	sentimentSig := s.gen.SentimentSignal(mood)

	for _, sym := range s.store.Symbols() {
		price, err := s.store.Read(sym)
		if err != nil {
			return errors.Wrap(err, "read price").With("symbol", sym)
		}
		if price <= 0 {
			// Feed has not written this symbol yet.
			continue
		}
		hist := s.histories[sym]
		hist.Add(price)

		signal := s.gen.Combine(s.gen.PriceSignal(hist), sentimentSig)
		if signal == schema.SignalNeutral {
			continue
		}
		if !ShouldExecute(signal, s.positions[sym]) {
			s.metric.IncOrderRejected()
			logs.Infof("signal %s rejected for %s: position already %s", signal, sym, s.positions[sym])
			continue
		}
		s.metric.IncOrderAdmitted()

		order := schema.Order{
			ID:     s.seq.Next(),
			Side:   signal.Side(),
			Qty:    s.cfg.OrderQty,
			Symbol: sym,
			Price:  price,
		}
		if err := s.sendOrder(order); err != nil {
			return err
		}
		s.metric.IncOrderSent()

		if signal == schema.SignalBuy {
			s.positions[sym] = schema.PositionLong
		} else {
			s.positions[sym] = schema.PositionShort
		}
		logs.Infof("order %d sent: %s %d %s @ %.2f (sentiment=%d)",
			order.ID, order.Side, order.Qty, order.Symbol, order.Price, int(mood))
	}
	return nil
}

func (s *Strategy) sendOrder(order schema.Order) error {
	if s.orderConn == nil {
		return exception.ErrNotConnected
	}
	start := time.Now()
	s.orderBuf = codec.AppendOrder(s.orderBuf[:0], order)
	if _, err := s.orderConn.Write(s.orderBuf); err != nil {
		return errors.Wrap(err, "send order").With("id", order.ID)
	}
	s.metric.ObserveOrderSend(time.Since(start))
	return nil
}

// Run steps the engine on a fixed interval until the context is
// cancelled, the duration (when positive) elapses, or an order send
// fails.
func (s *Strategy) Run(ctx context.Context, duration, interval time.Duration) error {
	if s.sentimentConn == nil || s.orderConn == nil {
		return exception.ErrNotConnected
	}
	deadline := time.Time{}
	if duration > 0 {
		deadline = time.Now().Add(duration)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Step(); err != nil {
				logs.Errorf("strategy step failed: %+v", err)
				return err
			}
		}
	}
}
