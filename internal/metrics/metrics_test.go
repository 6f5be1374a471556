package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"whatsup-go/internal/whatsup"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	return c, reg
}

func TestCollector_Cycles(t *testing.T) {
	c, _ := newTestCollector(t)

	c.CycleCompleted(5, 3, 2, nil)
	c.CycleCompleted(4, 4, 0, nil)
	c.CycleCompleted(0, 0, 0, errors.New("db down"))

	if got := promtest.ToFloat64(c.cycles.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok cycles = %v, want 2", got)
	}
	if got := promtest.ToFloat64(c.cycles.WithLabelValues("error")); got != 1 {
		t.Errorf("error cycles = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.selected); got != 9 {
		t.Errorf("selected = %v, want 9", got)
	}
	if got := promtest.ToFloat64(c.dispatched); got != 7 {
		t.Errorf("dispatched = %v, want 7", got)
	}
	if got := promtest.ToFloat64(c.skipped); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
}

func TestCollector_Fetches(t *testing.T) {
	c, _ := newTestCollector(t)

	c.FetchStarted()
	c.FetchStarted()
	if got := promtest.ToFloat64(c.fetchesActive); got != 2 {
		t.Errorf("in flight = %v, want 2", got)
	}

	c.FetchFinished(100*time.Millisecond, nil)
	c.FetchFinished(time.Second, errors.New("timeout"))
	if got := promtest.ToFloat64(c.fetchesActive); got != 0 {
		t.Errorf("in flight after finish = %v, want 0", got)
	}
	if n := promtest.CollectAndCount(c.fetchDuration); n != 2 {
		t.Errorf("fetch duration series = %d, want 2", n)
	}
}

func TestCollector_ChecksAndNotifications(t *testing.T) {
	c, _ := newTestCollector(t)

	c.WatchChecked(200)
	c.WatchChecked(200)
	c.WatchChecked(-1)
	c.NotificationSent()
	c.NotificationSuppressed()
	c.NotificationFailed()
	c.NotificationFailed()

	if got := promtest.ToFloat64(c.checks.WithLabelValues("200")); got != 2 {
		t.Errorf("checks{200} = %v, want 2", got)
	}
	if got := promtest.ToFloat64(c.checks.WithLabelValues("-1")); got != 1 {
		t.Errorf("checks{-1} = %v, want 1", got)
	}
	if got := promtest.ToFloat64(c.notifications.WithLabelValues("failed")); got != 2 {
		t.Errorf("notifications{failed} = %v, want 2", got)
	}
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("first NewCollector() error = %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Error("second NewCollector() on same registry expected error")
	}
}

func TestRouter(t *testing.T) {
	c, reg := newTestCollector(t)
	c.WatchChecked(200)

	srv := httptest.NewServer(NewRouter(reg, func() int { return 3 }))
	t.Cleanup(srv.Close)

	t.Run("metrics", func(t *testing.T) {
		body := get(t, srv.URL+"/metrics", http.StatusOK)
		if !strings.Contains(body, `whatsup_checks_total{status="200"} 1`) {
			t.Errorf("metrics output missing checks counter:\n%s", body)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		body := get(t, srv.URL+"/healthz", http.StatusOK)
		if body != "ok in_flight=3\n" {
			t.Errorf("healthz body = %q", body)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		get(t, srv.URL+"/nope", http.StatusNotFound)
	})
}

func TestServer_StartShutdown(t *testing.T) {
	_, reg := newTestCollector(t)
	s := NewServer("127.0.0.1:0", NewRouter(reg, nil), whatsup.NewNopLogger())

	addr, err := s.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	body := get(t, "http://"+addr.String()+"/healthz", http.StatusOK)
	if body != "ok\n" {
		t.Errorf("healthz body = %q", body)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func get(t *testing.T, url string, wantStatus int) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}
