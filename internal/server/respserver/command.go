package respserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/yndnr/shardmap-go/internal/infra/ratelimit"
	"github.com/yndnr/shardmap-go/internal/infra/secret"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// maxKeysPerCommand bounds DEL and EXISTS.
const maxKeysPerCommand = 1000

// Reply status labels used for metrics.
const (
	statusOK     = "OK"
	statusErr    = "ERR"
	statusOOM    = "OOM"
	statusNoAuth = "NOAUTH"
	statusRate   = "RATE"
)

type commandFunc func(ctx context.Context, c *Conn, args [][]byte) string

// CommandHandler executes commands against the map.
type CommandHandler struct {
	m        *shardmap.Map[string, []byte]
	password *secret.Checker
	log      logger.Logger
	limiter  *ratelimit.PerKey
	commands map[string]commandFunc
	started  time.Time
}

// NewCommandHandler creates a handler for m.
func NewCommandHandler(m *shardmap.Map[string, []byte], cfg Config, log logger.Logger) *CommandHandler {
	h := &CommandHandler{
		m:        m,
		password: secret.NewChecker(cfg.Password),
		log:      log,
		started:  time.Now(),
	}
	if cfg.RateLimit > 0 {
		h.limiter = ratelimit.New(cfg.RateLimit, ratelimit.DefaultTTL)
	}
	h.commands = map[string]commandFunc{
		"SETNX":  h.handleSetNX,
		"SET":    h.handleSet,
		"GET":    h.handleGet,
		"DEL":    h.handleDel,
		"EXISTS": h.handleExists,
		"DBSIZE": h.handleDBSize,
		"INFO":   h.handleInfo,
	}
	return h
}

// Handle runs one command and writes its reply. It returns the command name
// (or "UNKNOWN") and a reply status for metrics.
func (h *CommandHandler) Handle(ctx context.Context, c *Conn, args [][]byte) (name, status string) {
	name = commandName(args[0])

	// Connection-level commands do not require authentication.
	switch name {
	case "PING":
		return name, h.handlePing(c, args)
	case "AUTH":
		return name, h.handleAuth(ctx, c, args)
	case "QUIT":
		c.w.SimpleString("OK")
		c.quit = true
		return name, statusOK
	}

	fn, ok := h.commands[name]
	if !ok {
		c.w.Error(fmt.Sprintf("ERR unknown command '%s'", truncate(name, 64)))
		return "UNKNOWN", statusErr
	}

	if h.password.Enabled() && !c.authenticated {
		c.w.Error("NOAUTH Authentication required.")
		return name, statusNoAuth
	}

	if h.limiter != nil && !h.limiter.Allow(remoteIP(c.RemoteAddr())) {
		c.w.Error("ERR rate limit exceeded")
		return name, statusRate
	}

	return name, fn(ctx, c, args)
}

func (h *CommandHandler) handlePing(c *Conn, args [][]byte) string {
	switch len(args) {
	case 1:
		c.w.SimpleString("PONG")
	case 2:
		c.w.Bulk(args[1])
	default:
		return wrongArgs(c, "ping")
	}
	return statusOK
}

// AUTH password
// AUTH username password (username is ignored)
func (h *CommandHandler) handleAuth(ctx context.Context, c *Conn, args [][]byte) string {
	var given []byte
	switch len(args) {
	case 2:
		given = args[1]
	case 3:
		given = args[2]
	default:
		return wrongArgs(c, "auth")
	}

	if !h.password.Enabled() {
		c.w.Error("ERR AUTH called without any password configured")
		return statusErr
	}
	if !h.password.Check(string(given)) {
		logger.L(ctx).Warn("authentication failed", "remote", c.RemoteAddr().String())
		c.w.Error("WRONGPASS invalid username-password pair")
		return statusErr
	}
	c.authenticated = true
	c.w.SimpleString("OK")
	return statusOK
}

// SETNX key value
func (h *CommandHandler) handleSetNX(ctx context.Context, c *Conn, args [][]byte) string {
	if len(args) != 3 {
		return wrongArgs(c, "setnx")
	}
	err := h.m.Insert(string(args[1]), args[2])
	switch {
	case err == nil:
		c.w.Integer(1)
	case errors.Is(err, shardmap.ErrAlreadyExists):
		c.w.Integer(0)
	default:
		return h.mapError(ctx, c, err)
	}
	return statusOK
}

// SET key value [NX|XX]
func (h *CommandHandler) handleSet(ctx context.Context, c *Conn, args [][]byte) string {
	if len(args) < 3 {
		return wrongArgs(c, "set")
	}
	var nx, xx bool
	for _, opt := range args[3:] {
		switch strings.ToUpper(string(opt)) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		default:
			c.w.Error("ERR syntax error")
			return statusErr
		}
	}
	if nx && xx {
		c.w.Error("ERR syntax error")
		return statusErr
	}

	key, value := string(args[1]), args[2]
	switch {
	case nx:
		err := h.m.Insert(key, value)
		if errors.Is(err, shardmap.ErrAlreadyExists) {
			c.w.Null()
			return statusOK
		}
		if err != nil {
			return h.mapError(ctx, c, err)
		}
	case xx:
		_, err := h.m.Replace(key, value)
		if errors.Is(err, shardmap.ErrDoesNotExist) {
			c.w.Null()
			return statusOK
		}
		if err != nil {
			return h.mapError(ctx, c, err)
		}
	default:
		if err := h.upsert(key, value); err != nil {
			return h.mapError(ctx, c, err)
		}
	}
	c.w.SimpleString("OK")
	return statusOK
}

// upsert inserts key or replaces its value. Each step is atomic on its own;
// a concurrent DEL between them sends the loop round again.
func (h *CommandHandler) upsert(key string, value []byte) error {
	for {
		err := h.m.Insert(key, value)
		if !errors.Is(err, shardmap.ErrAlreadyExists) {
			return err
		}
		_, err = h.m.Replace(key, value)
		if !errors.Is(err, shardmap.ErrDoesNotExist) {
			return err
		}
	}
}

// GET key
func (h *CommandHandler) handleGet(ctx context.Context, c *Conn, args [][]byte) string {
	if len(args) != 2 {
		return wrongArgs(c, "get")
	}
	v, err := h.m.Get(string(args[1]))
	switch {
	case err == nil:
		if v == nil {
			v = []byte{}
		}
		c.w.Bulk(v)
	case errors.Is(err, shardmap.ErrDoesNotExist):
		c.w.Null()
	default:
		return h.mapError(ctx, c, err)
	}
	return statusOK
}

// DEL key [key ...]
func (h *CommandHandler) handleDel(ctx context.Context, c *Conn, args [][]byte) string {
	if len(args) < 2 {
		return wrongArgs(c, "del")
	}
	if len(args)-1 > maxKeysPerCommand {
		c.w.Error(fmt.Sprintf("ERR at most %d keys per command", maxKeysPerCommand))
		return statusErr
	}
	var deleted int64
	for _, k := range args[1:] {
		err := h.m.Delete(string(k))
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, shardmap.ErrDropFailed):
		default:
			return h.mapError(ctx, c, err)
		}
	}
	c.w.Integer(deleted)
	return statusOK
}

// EXISTS key [key ...]
func (h *CommandHandler) handleExists(ctx context.Context, c *Conn, args [][]byte) string {
	if len(args) < 2 {
		return wrongArgs(c, "exists")
	}
	if len(args)-1 > maxKeysPerCommand {
		c.w.Error(fmt.Sprintf("ERR at most %d keys per command", maxKeysPerCommand))
		return statusErr
	}
	var found int64
	for _, k := range args[1:] {
		if _, err := h.m.Get(string(k)); err == nil {
			found++
		}
	}
	c.w.Integer(found)
	return statusOK
}

// DBSIZE
func (h *CommandHandler) handleDBSize(_ context.Context, c *Conn, args [][]byte) string {
	if len(args) != 1 {
		return wrongArgs(c, "dbsize")
	}
	c.w.Integer(int64(h.m.Len()))
	return statusOK
}

// INFO [section]
func (h *CommandHandler) handleInfo(_ context.Context, c *Conn, args [][]byte) string {
	if len(args) > 2 {
		return wrongArgs(c, "info")
	}
	section := "all"
	if len(args) == 2 {
		section = strings.ToLower(string(args[1]))
	}

	var b strings.Builder
	if section == "all" || section == "server" {
		fmt.Fprintf(&b, "# Server\r\nuptime_in_seconds:%d\r\n\r\n", int64(time.Since(h.started).Seconds()))
	}
	if section == "all" || section == "keyspace" {
		s := h.m.Stats()
		fmt.Fprintf(&b, "# Keyspace\r\nkeys:%d\r\nbuckets:%d\r\nstrategy:%s\r\n", h.m.Len(), s.Buckets, h.m.Strategy())
		fmt.Fprintf(&b, "empty_buckets:%d\r\nbucket_min:%d\r\nbucket_max:%d\r\n", s.Empty, s.Min, s.Max)
		fmt.Fprintf(&b, "bucket_mean:%.3f\r\nbucket_stddev:%.3f\r\n", s.Mean, s.StdDev)
	}
	c.w.BulkString(b.String())
	return statusOK
}

// mapError writes err in Redis form: OOM for refused allocations, otherwise
// "ERR <code> <message>".
func (h *CommandHandler) mapError(ctx context.Context, c *Conn, err error) string {
	if errors.Is(err, shardmap.ErrOutOfMemory) {
		c.w.Error("OOM command not allowed when entry limit is reached")
		return statusOOM
	}
	var me *shardmap.Error
	if errors.As(err, &me) {
		c.w.Error("ERR " + me.Code + " " + me.Message)
		return statusErr
	}
	logger.L(ctx).Error("unexpected map error", "error", err)
	c.w.Error("ERR internal error")
	return statusErr
}

func wrongArgs(c *Conn, cmd string) string {
	c.w.Error("ERR wrong number of arguments for '" + cmd + "' command")
	return statusErr
}

func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
