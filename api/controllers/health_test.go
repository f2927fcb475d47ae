package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestLiveAlwaysOK(t *testing.T) {
	controller := NewHealthController("test", &stubPinger{err: errors.New("down")}, &stubPinger{err: errors.New("down")}, quietLogger())

	rec := httptest.NewRecorder()
	controller.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyOKWhenDependenciesHealthy(t *testing.T) {
	controller := NewHealthController("test", &stubPinger{}, &stubPinger{}, quietLogger())

	rec := httptest.NewRecorder()
	controller.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReadyFailsWhenDatabaseDown(t *testing.T) {
	controller := NewHealthController("test", &stubPinger{err: errors.New("no route")}, &stubPinger{}, quietLogger())

	rec := httptest.NewRecorder()
	controller.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unreachable") {
		t.Fatalf("expected failing check in body: %s", rec.Body.String())
	}
}

func TestReadyFailsWhenRedisDown(t *testing.T) {
	controller := NewHealthController("test", &stubPinger{}, &stubPinger{err: errors.New("no route")}, quietLogger())

	rec := httptest.NewRecorder()
	controller.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
