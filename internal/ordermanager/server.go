// Package ordermanager receives framed order messages over TCP,
// validates them, and appends accepted orders to an in-memory trade
// log. Each client connection gets its own handler; a bad frame drops
// the frame, and a dead connection ends only its own handler.
package ordermanager

import (
	"net"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/obs"
	"main/pkg/framing"
)

const handlerReadSize = 4096

// Server accepts strategy connections and logs their orders.
type Server struct {
	addr    string
	log     *TradeLog
	metrics *obs.Metrics

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer wires a listener address to a trade log.
func NewServer(addr string, log *TradeLog, metrics *obs.Metrics) *Server {
	return &Server{
		addr:    addr,
		log:     log,
		metrics: metrics,
	}
}

// Addr returns the bound listener address, valid after Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Log exposes the underlying trade log.
func (s *Server) Log() *TradeLog {
	return s.log
}

// Start binds the listener and launches the accept loop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("order manager already started").With("addr", s.addr)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "order manager listen").With("addr", s.addr)
	}
	s.ln = ln
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.acceptLoop(ln)

	logs.Infof("order manager listening on %s", ln.Addr())
	return nil
}

// Stop closes the listener, waits for every handler to drain, and logs
// the session summary. Safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.ln == nil {
		s.mu.Unlock()
		return
	}
	close(s.done)
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	_ = ln.Close()
	s.wg.Wait()

	sum := s.log.Summarize()
	logs.Infof("order manager stopped: trades=%d buys=%d sells=%d symbols=%v volume=%d value=%s",
		sum.TotalTrades, sum.BuyCount, sum.SellCount, sum.SymbolsTraded,
		sum.TotalVolume, sum.TotalValue.StringFixed(2))
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			logs.Warnf("order manager accept: %v", err)
			continue
		}

		s.metrics.IncClientAccepted()
		logs.Infof("order manager client connected: %s", conn.RemoteAddr())
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// handle drains one connection until the peer closes it or Stop runs.
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-s.done:
			_ = conn.Close()
		case <-finished:
		}
	}()

	framer := framing.New()
	buf := make([]byte, handlerReadSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Add(buf[:n])
			s.drain(framer)
		}
		if err != nil {
			logs.Infof("order manager client disconnected: %s", conn.RemoteAddr())
			return
		}
	}
}

func (s *Server) drain(framer *framing.Framer) {
	for _, frame := range framer.Drain() {
		order, err := codec.DecodeOrder(frame)
		if err != nil {
			s.metrics.IncFrameDropped()
			logs.Warnf("order manager dropped frame %q: %v", frame, err)
			continue
		}
		s.metrics.IncFrameDecoded()

		rec := s.log.Append(order)
		s.metrics.IncTradeLogged()
		logs.Infof("trade logged: id=%d %s %d %s @ %.2f",
			rec.ID, rec.Side, rec.Qty, rec.Symbol, rec.Price)
	}
}
