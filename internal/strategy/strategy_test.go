package strategy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/obs"
	"main/internal/pricestore"
	"main/internal/schema"
	"main/pkg/exception"
	"main/pkg/framing"
)

func newTestStore(t *testing.T, symbols []string) *pricestore.Store {
	t.Helper()
	name := fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
	store, err := pricestore.Create(name, symbols)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Unlink()
		_ = store.Close()
	})
	return store
}

// orderSink is a loopback order manager that collects decoded orders.
type orderSink struct {
	ln net.Listener

	mu     sync.Mutex
	orders []schema.Order
}

func newOrderSink(t *testing.T) *orderSink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	sink := &orderSink{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		framer := framing.New()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				framer.Add(buf[:n])
				for _, frame := range framer.Drain() {
					order, err := codec.DecodeOrder(frame)
					if err != nil {
						continue
					}
					sink.mu.Lock()
					sink.orders = append(sink.orders, order)
					sink.mu.Unlock()
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return sink
}

func (s *orderSink) received() []schema.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// sentimentFeed is a loopback feed that pushes one value per Write call.
type sentimentFeed struct {
	ln net.Listener

	mu   sync.Mutex
	conn net.Conn
}

func newSentimentFeed(t *testing.T) *sentimentFeed {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	feed := &sentimentFeed{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		feed.mu.Lock()
		feed.conn = conn
		feed.mu.Unlock()
	}()
	return feed
}

func (f *sentimentFeed) push(t *testing.T, value schema.Sentiment) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.conn != nil
	}, time.Second, 5*time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.conn.Write(codec.AppendSentiment(nil, value))
	require.NoError(t, err)
}

func (f *sentimentFeed) closePeer(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotNil(t, f.conn)
	require.NoError(t, f.conn.Close())
}

func newTestStrategy(t *testing.T, store *pricestore.Store, feed *sentimentFeed, sink *orderSink) (*Strategy, *obs.Metrics) {
	t.Helper()
	metrics := obs.NewMetrics()
	s, err := New(Config{
		SentimentAddr:    feed.ln.Addr().String(),
		OrderManagerAddr: sink.ln.Addr().String(),
		ShortWindow:      2,
		LongWindow:       4,
		BullishThreshold: 60,
		BearishThreshold: 40,
		OrderQty:         10,
	}, store, metrics)
	require.NoError(t, err)
	require.NoError(t, s.Connect())
	t.Cleanup(s.Close)
	return s, metrics
}

func TestStrategyEmitsBuyOnAgreement(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)

	// Rising series: after the full feed the short MA (104+105)/2=104.5
	// sits above the long MA (102+103+104+105)/4=103.5. With bullish
	// sentiment the crossover admits exactly one buy, at the first tick
	// where both windows are filled.
	for _, price := range []float64{101, 102, 103, 104, 105} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, time.Second, 5*time.Millisecond)

	order := sink.received()[0]
	assert.Equal(t, uint64(1), order.ID)
	assert.Equal(t, schema.SideBuy, order.Side)
	assert.Equal(t, int64(10), order.Qty)
	assert.Equal(t, "AAPL", order.Symbol)
	assert.InDelta(t, 104.0, order.Price, 1e-9)
	assert.Equal(t, schema.PositionLong, s.Position("AAPL"))
}

func TestStrategyDoesNotRepeatSide(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)

	// Keep rising past the first crossover: still long, still bullish,
	// no second buy.
	for _, price := range []float64{101, 102, 103, 104, 105, 106} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.received(), 1)
}

func TestStrategyFlipsToSell(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)
	for _, price := range []float64{101, 102, 103, 104} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	feed.push(t, 20)
	for _, price := range []float64{103, 101, 99, 97} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	require.Eventually(t, func() bool {
		return len(sink.received()) == 2
	}, time.Second, 5*time.Millisecond)

	orders := sink.received()
	assert.Equal(t, schema.SideBuy, orders[0].Side)
	assert.Equal(t, schema.SideSell, orders[1].Side)
	assert.Equal(t, uint64(1), orders[0].ID)
	assert.Equal(t, uint64(2), orders[1].ID)
	assert.Equal(t, schema.PositionShort, s.Position("AAPL"))
}

func TestStrategySkipsUnwrittenSymbols(t *testing.T) {
	store := newTestStore(t, []string{"AAPL", "MSFT"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)

	// Only AAPL gets prices; MSFT stays at its zero sentinel and must
	// never reach the history.
	for _, price := range []float64{101, 102, 103, 104} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "AAPL", sink.received()[0].Symbol)
	assert.Equal(t, schema.PositionFlat, s.Position("MSFT"))
}

func TestStrategyRunRequiresConnections(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	s, err := New(Config{
		SentimentAddr:    "127.0.0.1:1",
		OrderManagerAddr: "127.0.0.1:1",
		ShortWindow:      2,
		LongWindow:       4,
		BullishThreshold: 60,
		BearishThreshold: 40,
		OrderQty:         10,
	}, store, obs.NewMetrics())
	require.NoError(t, err)

	err = s.Run(t.Context(), time.Second, time.Millisecond)
	assert.ErrorIs(t, err, exception.ErrNotConnected)
}

func TestStrategyValidation(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})

	_, err := New(Config{ShortWindow: 2, LongWindow: 4, BullishThreshold: 60, BearishThreshold: 40, OrderQty: 0}, store, nil)
	assert.Error(t, err)

	_, err = New(Config{ShortWindow: 4, LongWindow: 4, BullishThreshold: 60, BearishThreshold: 40, OrderQty: 10}, store, nil)
	assert.Error(t, err)

	_, err = New(Config{ShortWindow: 2, LongWindow: 4, BullishThreshold: 60, BearishThreshold: 40, OrderQty: 10}, nil, nil)
	assert.Error(t, err)
}

func TestStrategyCountsAdmission(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, metrics := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)

	// Six rising ticks: tick 4 fills both windows and admits the buy;
	// ticks 5 and 6 keep signalling buy against an already-long
	// position and are rejected by admission control.
	for _, price := range []float64{101, 102, 103, 104, 105, 106} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.OrdersAdmitted)
	assert.Equal(t, uint64(1), snap.OrdersSent)
	assert.Equal(t, uint64(2), snap.OrdersRejected)
}

func TestStrategyRunUnlimitedWithoutDuration(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, 0, time.Millisecond)
	}()

	// A zero duration means no deadline: the loop must still be running
	// well past several tick intervals.
	select {
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not stop on cancel")
	}
}

func TestStrategyKeepsLastSentimentAfterFeedLoss(t *testing.T) {
	store := newTestStore(t, []string{"AAPL"})
	feed := newSentimentFeed(t)
	sink := newOrderSink(t)
	s, _ := newTestStrategy(t, store, feed, sink)

	feed.push(t, 80)
	require.NoError(t, store.Update("AAPL", 101))
	require.NoError(t, s.Step())
	require.Eventually(t, func() bool {
		return s.Sentiment() == 80
	}, time.Second, 5*time.Millisecond)

	feed.closePeer(t)

	// The engine keeps trading on the last received value.
	for _, price := range []float64{102, 103, 104} {
		require.NoError(t, store.Update("AAPL", price))
		require.NoError(t, s.Step())
	}
	assert.Equal(t, schema.Sentiment(80), s.Sentiment())

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, schema.SideBuy, sink.received()[0].Side)
}
