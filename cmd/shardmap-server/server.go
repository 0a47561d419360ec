package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/shardmap-go/internal/infra/buildinfo"
	"github.com/yndnr/shardmap-go/internal/infra/confloader"
	"github.com/yndnr/shardmap-go/internal/infra/shutdown"
	"github.com/yndnr/shardmap-go/internal/server/config"
	"github.com/yndnr/shardmap-go/internal/server/httpserver"
	"github.com/yndnr/shardmap-go/internal/server/localserver"
	"github.com/yndnr/shardmap-go/internal/server/respserver"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

const shutdownTimeout = 30 * time.Second

// server owns every long-lived component of the process.
type server struct {
	cfg      *config.ServerConfig
	loader   *confloader.Loader
	log      logger.Logger
	metrics  *metric.Registry
	m        *shardmap.Map[string, []byte]
	http     *httpserver.Server
	resp     *respserver.Server
	local    *localserver.Server
	shutdown *shutdown.Handler
	ready    atomic.Bool
	reloadMu sync.Mutex
}

func newServer(cfg *config.ServerConfig, loader *confloader.Loader) (*server, error) {
	log, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       os.Stdout,
		AddSource:    cfg.Log.AddSource,
		ShowPayloads: cfg.Log.ShowPayloads,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting shardmap-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", loader.FilePath(),
	)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	s := &server{
		cfg:      cfg,
		loader:   loader,
		log:      log,
		metrics:  metric.NewRegistry(),
		shutdown: shutdown.NewHandler(shutdownTimeout),
	}

	s.m, err = newMap(cfg.Map, s.metrics)
	if err != nil {
		return nil, fmt.Errorf("init map: %w", err)
	}
	if err := s.metrics.Register(metric.NewMapCollector("default", s.m)); err != nil {
		return nil, fmt.Errorf("register map collector: %w", err)
	}
	log.Info("map initialized",
		"buckets", s.m.BucketCount(),
		"strategy", s.m.Strategy(),
		"hash", cfg.Map.Hash,
		"entry_limit", cfg.Map.EntryLimit,
	)

	s.http = httpserver.New(httpserver.Config{
		Addr:         cfg.Server.HTTP.Addr,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}, httpserver.NewRouter(&httpserver.RouterConfig{
		Map:         s.m,
		Logger:      log,
		Metrics:     s.metrics,
		Password:    cfg.Security.Password,
		RateLimit:   cfg.Server.HTTP.RateLimit,
		EnableAudit: cfg.Server.HTTP.Audit,
		Ready:       s.ready.Load,
	}), log)

	if cfg.Server.RESP.Enabled {
		rc := respserver.DefaultConfig()
		rc.Addr = cfg.Server.RESP.Addr
		rc.Password = cfg.Security.Password
		rc.ReadTimeout = cfg.Server.RESP.ReadTimeout
		rc.WriteTimeout = cfg.Server.RESP.WriteTimeout
		rc.IdleTimeout = cfg.Server.RESP.IdleTimeout
		rc.RateLimit = cfg.Server.RESP.RateLimit
		rc.MaxConns = cfg.Server.RESP.MaxConns
		s.resp = respserver.New(rc, s.m, respserver.WithLogger(log), respserver.WithMetrics(s.metrics))
	}

	if sock := cfg.Server.Local.Socket; sock != "" {
		api := httpserver.NewRouter(&httpserver.RouterConfig{
			Map:         s.m,
			Logger:      log,
			Metrics:     s.metrics,
			EnableAudit: cfg.Server.HTTP.Audit,
			Ready:       s.ready.Load,
		})
		s.local = localserver.New(sock, localserver.NewHandler(api, s, log), log)
	}
	return s, nil
}

// newMap builds the served map from its config section.
func newMap(cfg config.MapSection, obs shardmap.Observer) (*shardmap.Map[string, []byte], error) {
	strategy, err := bucket.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	hash, err := hashfn.StringByName(cfg.Hash)
	if err != nil {
		return nil, err
	}
	return shardmap.NewFunc[string, []byte](cfg.Buckets, hash, strings.Compare,
		shardmap.WithStrategy(strategy),
		shardmap.WithEntryLimit(cfg.EntryLimit),
		shardmap.WithObserver(obs),
	)
}

// start binds every listener, registers shutdown hooks and marks the
// server ready. Hooks run in reverse order: listeners stop before the
// watcher.
func (s *server) start(ctx context.Context) error {
	if path := s.loader.FilePath(); path != "" {
		if err := s.watchConfig(path); err != nil {
			s.log.Warn("config hot reload disabled", "path", path, "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.http.Start(gctx); err != nil {
			return fmt.Errorf("http listen %s: %w", s.cfg.Server.HTTP.Addr, err)
		}
		s.shutdown.OnShutdown(s.http.Shutdown)
		return nil
	})
	if s.resp != nil {
		g.Go(func() error {
			if err := s.resp.Start(ctx); err != nil {
				return err
			}
			s.shutdown.OnShutdown(s.resp.Shutdown)
			return nil
		})
	}
	if s.local != nil {
		g.Go(func() error {
			if err := s.local.Start(gctx); err != nil {
				return err
			}
			s.shutdown.OnShutdown(s.local.Shutdown)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.shutdown.OnShutdown(func(context.Context) error {
		s.ready.Store(false)
		s.log.Info("shutting down listeners")
		return nil
	})
	s.ready.Store(true)
	return nil
}

// watchConfig re-reads the config file on change and applies the log level.
// Other settings need a restart.
func (s *server) watchConfig(path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(s.log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}
	w.OnChange(func(string) {
		if err := s.Reload(); err != nil {
			s.log.Warn("config reload rejected", "error", err)
		}
	})
	w.StartAsync()
	s.shutdown.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}

// Reload re-reads the config file and applies the log level. It backs both
// the file watcher and POST /local/reload.
func (s *server) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := config.Reload(s.loader)
	if err != nil {
		return err
	}
	if old := logger.GetLevel(); cfg.Log.Level != old {
		logger.SetLevel(cfg.Log.Level)
		s.log.Info("log level changed", "from", old, "to", logger.GetLevel())
	}
	return nil
}

// Entries reports the stored key count for the local status route.
func (s *server) Entries() int {
	return s.m.Len()
}
