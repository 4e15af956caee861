package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/ttlcache/cache"
)

func serve(t *testing.T, h http.Handler) (*httptest.ResponseRecorder, Report) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, report
}

func TestHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
		wantBody string
	}{
		{"healthy", Healthy("ok"), http.StatusOK, "healthy"},
		{"degraded", Degraded("slow"), http.StatusOK, "degraded"},
		{"unhealthy", Unhealthy("down", errors.New("boom")), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, report := serve(t, Handler(staticChecker("probe", tt.result)))

			if rec.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if report.Status != tt.wantBody {
				t.Errorf("report.Status = %q, want %q", report.Status, tt.wantBody)
			}
			if got := report.Checks["probe"].Status; got != tt.wantBody {
				t.Errorf("checks[probe].Status = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestHandler_ReportFields(t *testing.T) {
	h := Handler(staticChecker("probe", Unhealthy("down", errors.New("boom")).WithDetails(map[string]any{"keys": 3})))
	_, report := serve(t, h)

	check := report.Checks["probe"]
	if check.Message != "down" || check.Error != "boom" {
		t.Errorf("check = %+v", check)
	}
	if check.Details["keys"] != float64(3) {
		t.Errorf("Details = %v", check.Details)
	}
	if _, err := time.Parse(time.RFC3339, report.Timestamp); err != nil {
		t.Errorf("Timestamp %q: %v", report.Timestamp, err)
	}
}

func TestHandler_NoCheckers(t *testing.T) {
	rec, report := serve(t, Handler())
	if rec.Code != http.StatusOK || report.Status != "healthy" {
		t.Errorf("code = %d, report = %+v", rec.Code, report)
	}
	if len(report.Checks) != 0 {
		t.Errorf("Checks = %v, want none", report.Checks)
	}
}

func TestHandler_LiveCache(t *testing.T) {
	c := cache.New(cache.Config{Name: "sessions", MaxKeys: 2, ReaperInterval: -1})
	defer func() { _ = c.Close() }()

	h := Handler(
		NewCapacityChecker(c.Name(), c, CapacityConfig{}),
		NewReaperChecker(c.Name(), c, ReaperConfig{}),
	)

	rec, report := serve(t, h)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty cache: Status = %d, want 200", rec.Code)
	}
	if got := report.Checks["sessions.reaper"].Message; got != "reaper disabled" {
		t.Errorf("reaper message = %q", got)
	}

	_, _ = c.Set("a", "v")
	_, _ = c.Set("b", "v")

	rec, report = serve(t, h)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("full cache: Status = %d, want 503", rec.Code)
	}
	if got := report.Checks["sessions.capacity"].Status; got != "unhealthy" {
		t.Errorf("capacity status = %q", got)
	}
}

func TestAggregator_HandlerRespectsRequestContext(t *testing.T) {
	a := NewAggregator(time.Second, NewCheckerFunc("ctx", func(ctx context.Context) Result {
		<-ctx.Done()
		return Unhealthy("canceled", ctx.Err())
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}
