package localserver

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/yndnr/shardmap-go/internal/infra/buildinfo"
	"github.com/yndnr/shardmap-go/internal/server/httpserver"
	"github.com/yndnr/shardmap-go/internal/server/httpserver/handler"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
)

// Admin is the process the management routes act on.
type Admin interface {
	// Entries returns the number of stored keys.
	Entries() int
	// Reload re-reads configuration and applies what can change live.
	Reload() error
}

// Status is returned by GET /local/status.
type Status struct {
	Version    string `json:"version"`
	PID        int    `json:"pid"`
	Uptime     string `json:"uptime"`
	Entries    int    `json:"entries"`
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heap_bytes"`
}

// NewHandler mounts the management routes next to api.
func NewHandler(api http.Handler, admin Admin, log logger.Logger) http.Handler {
	started := time.Now()
	mux := http.NewServeMux()
	mux.Handle("/", api)

	wrap := func(h http.HandlerFunc) http.Handler {
		return httpserver.Chain(h, httpserver.Recover(log), httpserver.RequestID())
	}

	mux.Handle("GET /local/status", wrap(func(w http.ResponseWriter, r *http.Request) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		writeJSON(w, http.StatusOK, handler.NewResponse(requestID(r), Status{
			Version:    buildinfo.Get().Version,
			PID:        os.Getpid(),
			Uptime:     time.Since(started).Round(time.Second).String(),
			Entries:    admin.Entries(),
			Goroutines: runtime.NumGoroutine(),
			HeapBytes:  ms.HeapAlloc,
		}))
	}))

	mux.Handle("POST /local/reload", wrap(func(w http.ResponseWriter, r *http.Request) {
		if err := admin.Reload(); err != nil {
			log.Warn("local reload rejected", "error", err)
			writeJSON(w, http.StatusBadRequest, handler.NewErrorResponse(requestID(r),
				handler.CodeBadRequest, "reload rejected", err.Error()))
			return
		}
		log.Info("configuration reloaded via local socket")
		writeJSON(w, http.StatusOK, handler.NewResponse(requestID(r), map[string]string{"status": "reloaded"}))
	}))
	return mux
}

func requestID(r *http.Request) string {
	return logger.RequestIDFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v *handler.Response) {
	w.Header().Set("Content-Type", "application/json")
	if v.Code != "OK" {
		w.Header().Set("X-Error-Code", v.Code)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
