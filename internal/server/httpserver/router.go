package httpserver

import (
	"net/http"

	"github.com/yndnr/shardmap-go/internal/server/httpserver/handler"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Map serves the key API.
	Map *shardmap.Map[string, []byte]

	// Logger for request logging.
	Logger logger.Logger

	// Metrics records request metrics and serves /metrics. Nil disables both.
	Metrics *metric.Registry

	// Password guards /v1/ endpoints with Bearer auth when non-empty.
	Password string

	// RateLimit is the per-IP limit in requests/second (0 = unlimited).
	RateLimit int

	// EnableAudit enables request logging and request metrics.
	EnableAudit bool

	// Ready reports readiness for /ready; nil means always ready.
	Ready func() bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	h := handler.New(cfg.Map, log, cfg.Ready)

	// Probes and metrics skip auth and rate limiting.
	probes := Chain(h, RequestID(), Recover(log))

	api := []Middleware{Recover(log), RequestID()}
	if cfg.RateLimit > 0 {
		api = append(api, RateLimit(cfg.RateLimit))
	}
	if cfg.EnableAudit {
		api = append(api, Audit(log, cfg.Metrics))
	}
	api = append(api, Auth(cfg.Password))
	business := Chain(h, api...)

	mux := http.NewServeMux()
	mux.Handle("GET /health", probes)
	mux.Handle("GET /ready", probes)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(log)))
	}
	mux.Handle("GET /v1/stats", business)
	mux.Handle("PUT /v1/keys/{key}", business)
	mux.Handle("GET /v1/keys/{key}", business)
	mux.Handle("DELETE /v1/keys/{key}", business)
	mux.Handle("POST /v1/keys/{key}/replace", business)

	return mux
}
