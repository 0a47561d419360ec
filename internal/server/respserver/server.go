package respserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the listen address; ":0" picks a free port.
	Addr string
	// Password, when set, must be presented with AUTH before data commands.
	Password string
	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds flushing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per IP.
	// Zero disables rate limiting.
	RateLimit int
	// MaxConns caps concurrent connections; zero means no cap.
	MaxConns int
	// Limits bounds command size.
	Limits Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:6380",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
		MaxConns:     1024,
		Limits:       DefaultLimits(),
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records request and connection metrics in reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(s *Server) { s.metrics = reg }
}

// Server is a RESP front-end for one map.
type Server struct {
	cfg     Config
	log     logger.Logger
	metrics *metric.Registry
	handler *CommandHandler

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*Conn]struct{}
	running atomic.Bool
	open    atomic.Int64
	wg      sync.WaitGroup
}

// Conn is one client connection. It is only used by its serving goroutine.
type Conn struct {
	id      string
	netConn net.Conn
	r       *Reader
	w       *Writer

	authenticated bool
	quit          bool
	closed        atomic.Bool
}

func newConn(c net.Conn, limits Limits) *Conn {
	return &Conn{
		id:      ulid.Make().String(),
		netConn: c,
		r:       NewReader(bufio.NewReader(c), limits),
		w:       NewWriter(bufio.NewWriter(c)),
	}
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the client address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a RESP server for m.
func New(cfg Config, m *shardmap.Map[string, []byte], opts ...Option) *Server {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	s := &Server{
		cfg:   cfg,
		log:   logger.Default(),
		conns: make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewCommandHandler(m, s.cfg, s.log)
	return s
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("resp listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)

	s.log.Info("resp server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.log.Error("resp accept loop stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, lets in-flight commands finish and waits for
// every connection goroutine or ctx, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	err := s.ln.Close()
	// Wake connections parked in a read; the current command still completes.
	for c := range s.conns {
		_ = c.netConn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	s.log.Info("resp server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		if s.cfg.MaxConns > 0 && s.open.Load() >= int64(s.cfg.MaxConns) {
			s.log.Warn("connection limit reached", "remote", nc.RemoteAddr().String(), "max", s.cfg.MaxConns)
			w := NewWriter(bufio.NewWriter(nc))
			w.Error("ERR max number of clients reached")
			_ = nc.SetWriteDeadline(time.Now().Add(time.Second))
			_ = w.Flush()
			_ = nc.Close()
			continue
		}

		c := newConn(nc, s.cfg.Limits)
		if !s.track(c) {
			_ = c.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.open.Add(1)
	if s.metrics != nil {
		s.metrics.IncConnections()
	}
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.open.Add(-1)
	if s.metrics != nil {
		s.metrics.DecConnections()
	}
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	ctx = logger.WithConnID(ctx, c.id)
	log := logger.L(logger.WithLogger(ctx, s.log))
	log.Debug("connection opened", "remote", c.RemoteAddr().String())

	readTimeout := orDefault(s.cfg.ReadTimeout, 30*time.Second)
	writeTimeout := orDefault(s.cfg.WriteTimeout, 30*time.Second)
	idleTimeout := orDefault(s.cfg.IdleTimeout, 5*time.Minute)

	for s.running.Load() {
		// Idle timeout applies until the first byte of the next command.
		if err := c.netConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if _, err := c.r.br.Peek(1); err != nil {
			if !errors.Is(err, io.EOF) && !isTimeout(err) {
				log.Debug("connection read error", "error", err)
			}
			return
		}
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		args, err := c.r.ReadCommand()
		if err != nil {
			if errors.Is(err, io.EOF) || isTimeout(err) {
				return
			}
			if errors.Is(err, ErrLimitExceeded) {
				log.Warn("protocol limit exceeded", "error", err)
				c.w.Error("ERR protocol limit exceeded")
			} else {
				c.w.Error("ERR " + err.Error())
			}
			_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = c.w.Flush()
			return
		}

		if len(args) == 0 {
			continue
		}

		start := time.Now()
		name, status := s.handler.Handle(ctx, c, args)
		if s.metrics != nil {
			s.metrics.ObserveRequest("resp", name, status, start)
		}

		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.w.Flush(); err != nil || c.quit {
			return
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
