package httpserver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

func startServer(t *testing.T, rc *RouterConfig) (*Server, string) {
	t.Helper()
	if rc.Map == nil {
		m, err := shardmap.New[string, []byte](8)
		require.NoError(t, err)
		rc.Map = m
	}
	rc.Logger = logger.Discard()

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(cfg, NewRouter(rc), logger.Discard())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, "http://" + s.Addr().String()
}

func request(t *testing.T, method, url, body, token string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Routes(t *testing.T) {
	reg := metric.NewRegistry()
	_, base := startServer(t, &RouterConfig{Metrics: reg, EnableAudit: true})

	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/health", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/ready", "", "").StatusCode)
	assert.Equal(t, http.StatusCreated, request(t, "PUT", base+"/v1/keys/k1", `{"value":"v"}`, "").StatusCode)
	assert.Equal(t, http.StatusConflict, request(t, "PUT", base+"/v1/keys/k1", `{"value":"v"}`, "").StatusCode)
	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/v1/keys/k1", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/v1/stats", "", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, request(t, "GET", base+"/v1/nothing", "", "").StatusCode)

	resp := request(t, "GET", base+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "shardmap_requests_total")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("http", "PUT /v1/keys/{key}", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RequestsTotal.WithLabelValues("http", "PUT /v1/keys/{key}", "409")))
}

func TestServer_Auth(t *testing.T) {
	_, base := startServer(t, &RouterConfig{Password: "pw"})

	assert.Equal(t, http.StatusUnauthorized, request(t, "GET", base+"/v1/stats", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/v1/stats", "", "pw").StatusCode)
	// Probes stay open.
	assert.Equal(t, http.StatusOK, request(t, "GET", base+"/health", "", "").StatusCode)
}

func TestServer_Shutdown(t *testing.T) {
	m, err := shardmap.New[string, []byte](1)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(cfg, NewRouter(&RouterConfig{Map: m, Logger: logger.Discard()}), logger.Discard())
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start(context.Background()))
	addr := s.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/health")
	assert.Error(t, err)
}
