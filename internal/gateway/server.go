// Package gateway simulates the market feed: two independent TCP
// broadcast servers stream framed price and sentiment messages to any
// number of downstream clients at a fixed cadence.
package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/obs"
)

// BroadcastServer fans framed messages out to every connected client.
// An accept loop collects clients; a broadcast loop encodes one batch
// per tick interval and writes it to all of them. A client whose write
// fails is pruned, never fatal to the others.
type BroadcastServer struct {
	name     string
	addr     string
	interval time.Duration
	encode   func(dst []byte) []byte
	metrics  *obs.Metrics

	mu      sync.Mutex
	ln      net.Listener
	clients []net.Conn
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBroadcastServer creates a server that calls encode once per
// interval to build the outgoing batch of framed messages.
func NewBroadcastServer(name, addr string, interval time.Duration, encode func(dst []byte) []byte, metrics *obs.Metrics) *BroadcastServer {
	return &BroadcastServer{
		name:     name,
		addr:     addr,
		interval: interval,
		encode:   encode,
		metrics:  metrics,
	}
}

// Addr returns the bound listener address, valid after Start.
func (s *BroadcastServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and launches the accept and broadcast loops.
func (s *BroadcastServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("broadcast server already started").With("server", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "broadcast server listen").With("server", s.name).With("addr", s.addr)
	}
	s.ln = ln
	s.done = make(chan struct{})

	s.wg.Add(2)
	go s.acceptLoop(ln)
	go s.broadcastLoop()

	logs.Infof("%s server listening on %s", s.name, ln.Addr())
	return nil
}

// Stop halts broadcasting, closes every client socket, and closes the
// listener. Safe to call more than once.
func (s *BroadcastServer) Stop() {
	s.mu.Lock()
	if s.ln == nil {
		s.mu.Unlock()
		return
	}
	close(s.done)
	ln := s.ln
	s.ln = nil
	clients := s.clients
	s.clients = nil
	s.mu.Unlock()

	_ = ln.Close()
	for _, conn := range clients {
		_ = conn.Close()
	}
	s.wg.Wait()
	logs.Infof("%s server stopped", s.name)
}

// ClientCount reports the number of currently connected clients.
func (s *BroadcastServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *BroadcastServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			logs.Warnf("%s server accept: %v", s.name, err)
			continue
		}

		s.mu.Lock()
		s.clients = append(s.clients, conn)
		s.mu.Unlock()
		s.metrics.IncClientAccepted()
		logs.Infof("%s server client connected: %s", s.name, conn.RemoteAddr())
	}
}

func (s *BroadcastServer) broadcastLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var buf []byte
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		buf = s.encode(buf[:0])
		if len(buf) == 0 {
			continue
		}
		s.broadcast(buf)
		s.metrics.IncTickBroadcast()
	}
}

// broadcast writes the batch to every client, pruning failed writers.
func (s *BroadcastServer) broadcast(frame []byte) {
	s.mu.Lock()
	clients := s.clients
	s.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	var failed map[net.Conn]struct{}
	for _, conn := range clients {
		if _, err := conn.Write(frame); err != nil {
			logs.Infof("%s server client dropped: %s (%v)", s.name, conn.RemoteAddr(), err)
			_ = conn.Close()
			s.metrics.IncClientPruned()
			if failed == nil {
				failed = make(map[net.Conn]struct{})
			}
			failed[conn] = struct{}{}
		}
	}
	if len(failed) == 0 {
		return
	}

	// Filter rather than replace: the accept loop may have appended new
	// clients while writes were in flight.
	s.mu.Lock()
	alive := s.clients[:0]
	for _, conn := range s.clients {
		if _, ok := failed[conn]; !ok {
			alive = append(alive, conn)
		}
	}
	s.clients = alive
	s.mu.Unlock()
}
