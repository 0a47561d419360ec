package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.OpsTotal == nil || r.RequestsTotal == nil || r.RequestDuration == nil {
		t.Error("metric vectors not initialised")
	}
}

func TestHandler_RuntimeMetrics(t *testing.T) {
	body := scrape(t, NewRegistry())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestObserve(t *testing.T) {
	r := NewRegistry()

	r.Observe(shardmap.OpInsert, 1, nil)
	r.Observe(shardmap.OpInsert, 1, shardmap.ErrAlreadyExists)
	r.Observe(shardmap.OpInsert, 2, shardmap.ErrAlreadyExists)
	r.Observe(shardmap.OpGet, 0, shardmap.ErrDoesNotExist)
	r.Observe(shardmap.OpDelete, 0, errors.New("unexpected"))

	if got := testutil.ToFloat64(r.OpsTotal.WithLabelValues("insert", "ok")); got != 1 {
		t.Errorf("insert/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.OpsTotal.WithLabelValues("insert", "SM-MAP-4090")); got != 2 {
		t.Errorf("insert/SM-MAP-4090 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.InsertContention); got != 2 {
		t.Errorf("insert conflicts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.OpsTotal.WithLabelValues("delete", ResultError)); got != 1 {
		t.Errorf("delete/error = %v, want 1", got)
	}

	body := scrape(t, r)
	if !strings.Contains(body, `shardmap_operations_total{op="get",result="SM-MAP-4040"} 1`) {
		t.Error("expected get miss counter in exposition")
	}
}

func TestRegistry_AsMapObserver(t *testing.T) {
	r := NewRegistry()
	m, err := shardmap.New[string, int](8, shardmap.WithObserver(r))
	if err != nil {
		t.Fatal(err)
	}

	m.Insert("a", 1)
	m.Insert("a", 2)
	m.Get("a")

	if got := testutil.ToFloat64(r.OpsTotal.WithLabelValues("get", ResultOK)); got != 1 {
		t.Errorf("get/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.InsertContention); got != 1 {
		t.Errorf("insert conflicts = %v, want 1", got)
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("http", "GET", "200")
	r.RecordRequest("http", "PUT", "201")
	r.ObserveRequest("resp", "SETNX", "OK", time.Now())
	r.ObserveRequestDuration("http", "GET", 0.005)

	body := scrape(t, r)
	if !strings.Contains(body, `shardmap_requests_total{method="GET",protocol="http",status="200"} 1`) {
		t.Error("expected shardmap_requests_total for http GET 200")
	}
	if !strings.Contains(body, `shardmap_requests_total{method="SETNX",protocol="resp",status="OK"} 1`) {
		t.Error("expected shardmap_requests_total for resp SETNX OK")
	}
	if !strings.Contains(body, "shardmap_request_duration_seconds_bucket") {
		t.Error("expected shardmap_request_duration_seconds_bucket")
	}
}

func TestConnectionsAndBench(t *testing.T) {
	r := NewRegistry()

	r.IncConnections()
	r.IncConnections()
	r.DecConnections()
	r.RecordBench(100, 3, 0, 2*time.Second)

	if got := testutil.ToFloat64(r.ConnectionsOpen); got != 1 {
		t.Errorf("connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.BenchInsertsTotal.WithLabelValues("duplicate")); got != 3 {
		t.Errorf("bench duplicates = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(r.BenchDuration); got != 1 {
		t.Errorf("bench duration series = %d, want 1", got)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Observe(shardmap.OpInsert, j, nil)
				r.RecordRequest("http", "GET", "200")
				r.ObserveRequestDuration("http", "GET", 0.001)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(r.OpsTotal.WithLabelValues("insert", ResultOK)); got != 1000 {
		t.Errorf("insert/ok = %v, want 1000", got)
	}
}
