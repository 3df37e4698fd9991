// Package server is the front-end: the TCP listener plus
// per-connection protocol handlers, the snapshot ticker, and the
// termination handler.
package server

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"horcrux/metrics"
	"horcrux/router"
)

/*
Server manages listener lifecycle and client connection goroutines,
dispatching requests through a Router that fans out to per-shard
workers.
*/
type Server struct {
	addr    string
	router  *router.Router
	logger  *zap.Logger
	metrics *metrics.Metrics

	ln           net.Listener
	wg           sync.WaitGroup
	ready        chan struct{} // closed once the listener is initialized
	shuttingDown chan struct{} // closed to signal intentional shutdown

	tickerDone chan struct{}
}

// New creates a Server that routes requests through r and listens on
// addr once Start is called.
func New(addr string, r *router.Router, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Server{
		addr:         addr,
		router:       r,
		logger:       logger,
		metrics:      m,
		ready:        make(chan struct{}),
		shuttingDown: make(chan struct{}),
	}
}

// Start begins listening and accepts connections until Stop is called
// or Accept fails for a reason other than deliberate shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("listen failed", zap.String("addr", s.addr), zap.Error(err))
		return err
	}

	s.ln = ln
	close(s.ready)
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shuttingDown:
				return nil
			default:
				return err
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(c)
		}(conn)
	}
}

// StartSnapshotTicker starts the periodic broadcast: every interval,
// fire-and-forget a snapshot of every shard. The first tick fires
// after one full interval, never immediately on startup.
func (s *Server) StartSnapshotTicker(interval time.Duration) {
	s.tickerDone = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.logger.Info("snapshot ticker firing")
				if ok := s.router.BroadcastSnapshot(false); !ok {
					s.logger.Warn("scheduled snapshot broadcast reported a failure; next tick will retry")
				}
			case <-s.tickerDone:
				return
			}
		}
	}()
}

// Stop initiates graceful shutdown: stops accepting new connections,
// stops the snapshot ticker if running, and waits for active handlers
// to exit.
func (s *Server) Stop() {
	<-s.ready
	close(s.shuttingDown)
	if s.tickerDone != nil {
		close(s.tickerDone)
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
}

// Addr returns the listener's bound address. Safe to call only after
// Start has signaled ready (tests poll s.ready).
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}
