// Package orderbook bridges the gateway's price stream into the shared
// price table: it frames the TCP feed, decodes ticks, and mirrors them
// into the pricestore for strategies to read.
package orderbook

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/obs"
	"main/internal/pricestore"
	"main/pkg/exception"
	"main/pkg/framing"
)

const readBufferSize = 4096

// readTimeout bounds every socket read so the run loop can check its
// duration and cancellation between reads.
const readTimeout = 250 * time.Millisecond

// Client consumes one gateway price feed and writes updates into a
// pricestore. Reconnect policy lives in Run; Connect itself never
// retries.
type Client struct {
	addr    string
	store   *pricestore.Store
	tracked map[string]struct{}
	metrics *obs.Metrics

	conn   net.Conn
	framer *framing.Framer
	buf    []byte
}

// NewClient creates a client feeding the given store. Only symbols in
// the store's configured set are mirrored; the feed may broadcast a
// superset.
func NewClient(addr string, store *pricestore.Store, metrics *obs.Metrics) (*Client, error) {
	if store == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "orderbook client: nil store")
	}

	tracked := make(map[string]struct{})
	for _, symbol := range store.Symbols() {
		tracked[symbol] = struct{}{}
	}

	return &Client{
		addr:    addr,
		store:   store,
		tracked: tracked,
		metrics: metrics,
		framer:  framing.New(),
		buf:     make([]byte, readBufferSize),
	}, nil
}

// Connect opens the TCP connection to the gateway price feed. It makes
// a single attempt; callers own the retry policy.
func (c *Client) Connect() error {
	conn, err := net.DialTimeout("tcp", c.addr, 3*time.Second)
	if err != nil {
		return errors.Wrap(err, "orderbook client: connect").With("addr", c.addr)
	}
	c.conn = conn
	c.framer.Reset()
	logs.Infof("orderbook connected to gateway price feed at %s", c.addr)
	return nil
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	return c.conn != nil
}

// Close shuts the feed connection. The store is left open; its
// lifecycle belongs to the process that created it.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

// Pump performs one bounded read and mirrors any completed price
// messages into the store. It returns the number of updates applied.
// A read timeout is "no data yet" and yields zero updates; an empty
// read means the peer closed and surfaces exception.ErrConnectionClose.
func (c *Client) Pump() (int, error) {
	if c.conn == nil {
		return 0, exception.ErrNotConnected
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return 0, errors.Wrap(err, "orderbook client: set deadline")
	}

	n, err := c.conn.Read(c.buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil
		}
		if err != io.EOF {
			logs.Warnf("orderbook read failed: %v", err)
		}
		return 0, exception.ErrConnectionClose
	}
	if n == 0 {
		return 0, exception.ErrConnectionClose
	}

	c.framer.Add(c.buf[:n])
	updates := 0
	for _, msg := range c.framer.Drain() {
		tick, err := codec.DecodePriceTick(msg)
		if err != nil {
			logs.Warnf("orderbook dropping malformed price message: %v", err)
			c.metrics.IncFrameDropped()
			continue
		}
		c.metrics.IncFrameDecoded()

		if _, ok := c.tracked[tick.Symbol]; !ok {
			continue // feed may broadcast a superset
		}
		if err := c.store.Update(tick.Symbol, tick.Price); err != nil {
			return updates, errors.Wrap(err, "orderbook client: store update")
		}
		c.metrics.IncStoreUpdate()
		updates++
	}
	return updates, nil
}

// Run pumps the feed until ctx is done or duration (when positive)
// elapses. A lost connection triggers a reconnect cycle of up to
// maxAttempts tries spaced by delay; exhausting them aborts the run.
func (c *Client) Run(ctx context.Context, duration time.Duration, maxAttempts int, delay time.Duration) error {
	deadline := time.Time{}
	if duration > 0 {
		deadline = time.Now().Add(duration)
	}

	totalUpdates := 0
	defer func() {
		c.Close()
		logs.Infof("orderbook stopped after %d updates", totalUpdates)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil
		}

		if !c.Connected() {
			if err := c.reconnect(ctx, maxAttempts, delay); err != nil {
				return err
			}
		}

		n, err := c.Pump()
		totalUpdates += n
		if err == nil {
			continue
		}
		if err == exception.ErrConnectionClose {
			logs.Warnf("orderbook lost gateway connection, reconnecting")
			c.Close()
			continue
		}
		return err
	}
}

func (c *Client) reconnect(ctx context.Context, maxAttempts int, delay time.Duration) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		err := c.Connect()
		if err == nil {
			return nil
		}
		logs.Warnf("orderbook connect attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
		}
	}
	return errors.Wrap(exception.ErrNotConnected, "orderbook client: reconnect attempts exhausted").
		With("attempts", maxAttempts)
}
