package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dsfg/calendar/internal/clock"
	"github.com/dsfg/calendar/internal/metrics"
	"github.com/dsfg/calendar/internal/middleware"
	"github.com/dsfg/calendar/internal/model"
)

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// newTestRouter はテスト用のルーターを生成する。
func newTestRouter(t *testing.T, svc CalendarService, rlCfg middleware.RateLimiterConfig, checker HealthChecker) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	rl := middleware.NewRateLimiter(rlCfg, logger)
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		CalendarService:   svc,
		Clock:             clock.NewFixed(testNow),
		HealthChecker:     checker,
		MetricsHandler:    metrics.Handler(reg),
	})
}

func TestNewRouter_CalendarRoute(t *testing.T) {
	router := newTestRouter(t, serviceWithEvents(sampleEvents()), middleware.DefaultRateLimiterConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/calendar status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestNewRouter_RefreshRoute_RequiresPost(t *testing.T) {
	router := newTestRouter(t, serviceWithEvents(nil), middleware.DefaultRateLimiterConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/calendar/refresh status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestNewRouter_RefreshRoute_HasStricterRateLimit(t *testing.T) {
	cfg := middleware.NewRateLimiterConfig(60, 1)
	svc := serviceWithEvents(nil)
	router := newTestRouter(t, svc, cfg, nil)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/calendar/refresh", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/calendar/refresh", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}

	// 通常の取得は強制再取得の制限を受けない
	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))
	if get.Code != http.StatusOK {
		t.Errorf("GET /api/calendar status = %d, want %d", get.Code, http.StatusOK)
	}
	if svc.calls != 2 {
		t.Errorf("service calls = %d, want 2", svc.calls)
	}
}

func TestNewRouter_UpstreamFailure_ReturnsErrorState(t *testing.T) {
	router := newTestRouter(t, failingService(errors.New("boom")), middleware.DefaultRateLimiterConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNewRouter_PanicIsRecovered(t *testing.T) {
	svc := &mockCalendarService{today: model.DateOf(testNow, time.UTC)}
	router := newTestRouter(t, svc, middleware.DefaultRateLimiterConfig(), nil)

	// モックがnilのエントリを返すとハンドラー内でpanicする
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNewRouter_EventTypesRoute(t *testing.T) {
	router := newTestRouter(t, serviceWithEvents(nil), middleware.DefaultRateLimiterConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/event-types", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /api/event-types status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_Health(t *testing.T) {
	router := newTestRouter(t, serviceWithEvents(nil), middleware.DefaultRateLimiterConfig(), &mockHealthChecker{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want status ok", w.Body.String())
	}
}

func TestNewRouter_Health_DependencyDown(t *testing.T) {
	checker := &mockHealthChecker{err: errors.New("connection refused")}
	router := newTestRouter(t, serviceWithEvents(nil), middleware.DefaultRateLimiterConfig(), checker)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestNewRouter_HealthIsNotRateLimited(t *testing.T) {
	cfg := middleware.NewRateLimiterConfig(1, 1)
	router := newTestRouter(t, serviceWithEvents(nil), cfg, nil)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: GET /health status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, serviceWithEvents(nil), middleware.DefaultRateLimiterConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_RequestIDHeaderIsPropagated(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), logger)
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		Logger:          logger,
		RateLimiter:     rl,
		CalendarService: serviceWithEvents(nil),
		Clock:           clock.NewFixed(testNow),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(logs.String(), `"request_id":"req-123"`) {
		t.Errorf("request log should contain request_id, got %s", logs.String())
	}
}
