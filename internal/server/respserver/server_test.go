package respserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/shardmap-go/internal/infra/secret"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

type client struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dial(t *testing.T, s *Server) *client {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return &client{t: t, conn: conn, br: bufio.NewReader(conn)}
}

// do sends args as a RESP array and returns the reply as a compact string:
// "+OK", "-ERR ...", ":1", "$nil" or the bulk payload.
func (c *client) do(args ...string) string {
	c.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(a), a)
	}
	_, err := c.conn.Write([]byte(b.String()))
	require.NoError(c.t, err)
	return c.read()
}

func (c *client) read() string {
	c.t.Helper()
	line, err := c.br.ReadString('\n')
	require.NoError(c.t, err)
	line = strings.TrimSuffix(line, "\r\n")
	if line == "$-1" {
		return "$nil"
	}
	if line[0] != '$' {
		return line
	}
	var n int
	fmt.Sscanf(line, "$%d", &n)
	buf := make([]byte, n+2)
	_, err = io.ReadFull(c.br, buf)
	require.NoError(c.t, err)
	return string(buf[:n])
}

func startServer(t *testing.T, cfg Config, opts ...Option) (*Server, *shardmap.Map[string, []byte]) {
	t.Helper()
	m, err := shardmap.New[string, []byte](16, shardmap.WithEntryLimit(100))
	require.NoError(t, err)

	cfg.Addr = "127.0.0.1:0"
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	s := New(cfg, m, opts...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s, m
}

func TestServer_Commands(t *testing.T) {
	s, m := startServer(t, DefaultConfig())
	c := dial(t, s)

	assert.Equal(t, "+PONG", c.do("PING"))
	assert.Equal(t, "hello", c.do("PING", "hello"))

	assert.Equal(t, ":1", c.do("SETNX", "user:1", "alice"))
	assert.Equal(t, ":0", c.do("SETNX", "user:1", "mallory"))
	assert.Equal(t, "alice", c.do("GET", "user:1"))

	assert.Equal(t, "$nil", c.do("SET", "user:1", "bob", "NX"))
	assert.Equal(t, "+OK", c.do("SET", "user:1", "bob", "XX"))
	assert.Equal(t, "bob", c.do("GET", "user:1"))
	assert.Equal(t, "$nil", c.do("SET", "user:2", "x", "XX"))
	assert.Equal(t, "+OK", c.do("SET", "user:2", "carol"))
	assert.Equal(t, "+OK", c.do("SET", "user:2", "dave"))
	assert.Equal(t, "dave", c.do("GET", "user:2"))

	assert.Equal(t, ":2", c.do("EXISTS", "user:1", "user:2", "user:3"))
	assert.Equal(t, ":2", c.do("DBSIZE"))
	assert.Equal(t, ":1", c.do("DEL", "user:1", "user:3"))
	assert.Equal(t, "$nil", c.do("GET", "user:1"))
	assert.Equal(t, 1, m.Len())

	info := c.do("INFO", "keyspace")
	assert.Contains(t, info, "keys:1")
	assert.Contains(t, info, "buckets:16")

	assert.True(t, strings.HasPrefix(c.do("SET", "k", "v", "NX", "XX"), "-ERR syntax"))
	assert.True(t, strings.HasPrefix(c.do("GET"), "-ERR wrong number"))
	assert.True(t, strings.HasPrefix(c.do("FLUSHALL"), "-ERR unknown command"))
}

func TestServer_InlineCommand(t *testing.T) {
	s, _ := startServer(t, DefaultConfig())
	c := dial(t, s)

	_, err := c.conn.Write([]byte("SETNX k v\r\n"))
	require.NoError(t, err)
	assert.Equal(t, ":1", c.read())
}

func TestServer_OutOfMemory(t *testing.T) {
	s, _ := startServer(t, DefaultConfig())
	c := dial(t, s)

	for i := 0; i < 100; i++ {
		require.Equal(t, ":1", c.do("SETNX", fmt.Sprintf("k%d", i), "v"))
	}
	reply := c.do("SETNX", "overflow", "v")
	assert.True(t, strings.HasPrefix(reply, "-OOM"), "reply = %q", reply)
	assert.Equal(t, ":0", c.do("SETNX", "k1", "v"), "duplicates still report 0 at the limit")
}

func TestServer_Auth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "s3cret"
	s, _ := startServer(t, cfg)
	c := dial(t, s)

	assert.Equal(t, "+PONG", c.do("PING"))
	assert.True(t, strings.HasPrefix(c.do("GET", "k"), "-NOAUTH"))
	assert.True(t, strings.HasPrefix(c.do("AUTH", "wrong"), "-WRONGPASS"))
	assert.Equal(t, "+OK", c.do("AUTH", "default", "s3cret"))
	assert.Equal(t, "$nil", c.do("GET", "k"))
}

func TestServer_AuthHashedPassword(t *testing.T) {
	encoded, err := secret.Hash("s3cret")
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Password = encoded
	s, _ := startServer(t, cfg)
	c := dial(t, s)

	assert.True(t, strings.HasPrefix(c.do("AUTH", encoded), "-WRONGPASS"))
	assert.Equal(t, "+OK", c.do("AUTH", "s3cret"))
	assert.Equal(t, "$nil", c.do("GET", "k"))
}

func TestServer_Quit(t *testing.T) {
	s, _ := startServer(t, DefaultConfig())
	c := dial(t, s)

	assert.Equal(t, "+OK", c.do("QUIT"))
	_, err := c.br.ReadByte()
	assert.Error(t, err, "server should close the connection after QUIT")
}

func TestServer_ProtocolLimit(t *testing.T) {
	s, _ := startServer(t, DefaultConfig())
	c := dial(t, s)

	_, err := c.conn.Write([]byte("*5000\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "-ERR protocol limit exceeded", c.read())
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 3
	s, _ := startServer(t, cfg)
	c := dial(t, s)

	limited := false
	for i := 0; i < 10; i++ {
		if strings.Contains(c.do("DBSIZE"), "rate limit") {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected rate limiting within 10 commands at 3/s")
}

func TestServer_ConcurrentSetNXOneWinner(t *testing.T) {
	s, m := startServer(t, DefaultConfig())

	const clients = 16
	var wg sync.WaitGroup
	wins := make(chan string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := dial(t, s)
			if c.do("SETNX", "lock", fmt.Sprint(i)) == ":1" {
				wins <- fmt.Sprint(i)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)
	v, err := m.Get("lock")
	require.NoError(t, err)
	assert.Equal(t, winners[0], string(v))
}

func TestServer_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	s, _ := startServer(t, DefaultConfig(), WithMetrics(reg))
	c := dial(t, s)

	c.do("SETNX", "a", "1")
	c.do("NOPE")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("resp", "SETNX", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("resp", "UNKNOWN", "ERR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ConnectionsOpen))
}

func TestServer_MaxConns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConns = 1
	s, _ := startServer(t, cfg)

	first := dial(t, s)
	require.Equal(t, "+PONG", first.do("PING"))

	second := dial(t, s)
	assert.Equal(t, "-ERR max number of clients reached", second.read())
}

func TestServer_ShutdownClosesIdleConns(t *testing.T) {
	s, _ := startServer(t, DefaultConfig())
	c := dial(t, s)
	require.Equal(t, "+PONG", c.do("PING"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err := c.br.ReadByte()
	assert.Error(t, err)
}
