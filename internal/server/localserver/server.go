package localserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
)

// Server represents the local management server.
type Server struct {
	path    string
	handler http.Handler
	log     logger.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// New creates a local server for socketPath.
func New(socketPath string, h http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		path:    socketPath,
		handler: h,
		log:     log.With("component", "localserver"),
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Start binds the socket and serves in the background. A stale socket file
// left by a crashed process is replaced; a live one is an error.
func (s *Server) Start(ctx context.Context) error {
	if err := removeStale(ctx, s.path); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", s.path)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.listener = ln
	s.srv = srv
	s.mu.Unlock()

	s.log.Info("local server listening", "socket", s.path)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("local server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting connections, drains in-flight requests and
// removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	s.log.Info("local server stopped")
	return err
}

func removeStale(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}

	d := net.Dialer{Timeout: time.Second}
	if conn, err := d.DialContext(ctx, "unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("%s is in use by another process", path)
	}
	return os.Remove(path)
}
