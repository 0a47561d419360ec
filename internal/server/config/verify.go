package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/yndnr/shardmap-go/internal/infra/secret"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyMap(&cfg.Map),
		verifyServer(&cfg.Server),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
	)
}

// verifySecurity rejects a password that looks like a hash but cannot be
// parsed; it would otherwise lock every client out.
func verifySecurity(cfg *SecuritySection) error {
	if secret.IsHash(cfg.Password) {
		if err := secret.Validate(cfg.Password); err != nil {
			return fmt.Errorf("security.password: %w", err)
		}
	}
	return nil
}

func verifyMap(cfg *MapSection) error {
	var errs []error
	if cfg.Buckets <= 0 || cfg.Buckets > shardmap.MaxBucketCount {
		errs = append(errs, fmt.Errorf("map.buckets must be in [1, %d], got %d", shardmap.MaxBucketCount, cfg.Buckets))
	}
	if _, err := bucket.ParseStrategy(cfg.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("map.strategy: %w", err))
	}
	if _, err := hashfn.StringByName(cfg.Hash); err != nil {
		errs = append(errs, fmt.Errorf("map.hash: %w", err))
	}
	if cfg.EntryLimit < 0 {
		errs = append(errs, fmt.Errorf("map.entry_limit must not be negative, got %d", cfg.EntryLimit))
	}
	return errors.Join(errs...)
}

// maxSocketPath is the usable sun_path length on macOS, the tighter of the
// supported platforms.
const maxSocketPath = 103

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
		errs = append(errs, err)
	}
	if cfg.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.http.rate_limit must not be negative, got %d", cfg.HTTP.RateLimit))
	}
	if cfg.RESP.Enabled {
		if err := verifyAddr("server.resp.addr", cfg.RESP.Addr); err != nil {
			errs = append(errs, err)
		}
		if cfg.RESP.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("server.resp.rate_limit must not be negative, got %d", cfg.RESP.RateLimit))
		}
		if cfg.RESP.MaxConns < 0 {
			errs = append(errs, fmt.Errorf("server.resp.max_conns must not be negative, got %d", cfg.RESP.MaxConns))
		}
		if cfg.RESP.Addr == cfg.HTTP.Addr && portOf(cfg.RESP.Addr) != "0" {
			errs = append(errs, fmt.Errorf("server.resp.addr conflicts with server.http.addr (%s)", cfg.RESP.Addr))
		}
	}
	if sock := cfg.Local.Socket; sock != "" && len(sock) > maxSocketPath {
		errs = append(errs, fmt.Errorf("server.local.socket is longer than %d bytes", maxSocketPath))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%s: invalid port %q", name, port)
	}
	return nil
}

func portOf(addr string) string {
	_, port, _ := net.SplitHostPort(addr)
	return port
}
