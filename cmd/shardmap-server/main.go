package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/infra/buildinfo"
	"github.com/yndnr/shardmap-go/internal/server/config"
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"buckets":     "map.buckets",
	"strategy":    "map.strategy",
	"hash":        "map.hash",
	"entry-limit": "map.entry_limit",
	"http-addr":   "server.http.addr",
	"resp-addr":   "server.resp.addr",
	"resp":        "server.resp.enabled",
	"socket":      "server.local.socket",
	"password":    "security.password",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "shardmap-server",
		Usage:   "Serve a sharded in-memory map over HTTP, RESP and a local socket",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config `FILE`", EnvVars: []string{"SHARDMAP_CONFIG"}},
			&cli.IntFlag{Name: "buckets", Usage: "fixed bucket count"},
			&cli.StringFlag{Name: "strategy", Usage: "bucket collection: btree, lockfree"},
			&cli.StringFlag{Name: "hash", Usage: "key hasher: maphash, murmur3, xxhash"},
			&cli.Int64Flag{Name: "entry-limit", Usage: "maximum stored entries (0 = unlimited)"},
			&cli.StringFlag{Name: "http-addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "resp-addr", Usage: "RESP listen address"},
			&cli.BoolFlag{Name: "resp", Usage: "enable the RESP listener"},
			&cli.StringFlag{Name: "socket", Usage: "serve the API and management routes on this Unix socket `PATH`"},
			&cli.StringFlag{Name: "password", Usage: "require this password on RESP and HTTP"},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "log-format", Usage: "log format: json, text"},
		},
		Action: func(c *cli.Context) error {
			overrides := map[string]any{}
			for name, key := range flagKeys {
				if c.IsSet(name) {
					overrides[key] = c.Value(name)
				}
			}
			return run(c.Context, c.String("config"), overrides)
		},
	}
}

// run starts the server and blocks until SIGINT, SIGTERM or ctx ends.
func run(ctx context.Context, configFile string, overrides map[string]any) error {
	cfg, loader, err := config.Load(configFile, overrides)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, loader)
	if err != nil {
		return err
	}
	if err := srv.start(ctx); err != nil {
		_ = srv.shutdown.Shutdown()
		return err
	}

	srv.log.Info("server started, press Ctrl+C to stop")
	if err := srv.shutdown.WaitContext(ctx); err != nil {
		srv.log.Error("shutdown error", "error", err)
		return err
	}
	srv.log.Info("server stopped gracefully")
	return nil
}
