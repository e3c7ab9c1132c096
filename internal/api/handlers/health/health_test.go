package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cart-recommender/internal/core/ai/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubUpstream struct{}

func (stubUpstream) Name() string         { return "openrouter" }
func (stubUpstream) BreakerState() string { return "closed" }
func (stubUpstream) QueueStatus() *queue.Status {
	return &queue.Status{Workers: 8, MaxQueueSize: 100}
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", h.HealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthCheckReportsUpstream(t *testing.T) {
	h := NewHandler("1.2.3", stubUpstream{}, nil)

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
	assert.Contains(t, w.Body.String(), `"provider":"openrouter"`)
	assert.Contains(t, w.Body.String(), `"breaker":"closed"`)
	assert.Contains(t, w.Body.String(), `"workers":8`)
}

func TestReadinessCheck(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	w := serve(NewHandler("1", nil, map[string]Pinger{"database": ok, "cache": ok}), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	w = serve(NewHandler("1", nil, map[string]Pinger{"database": ok, "cache": down}), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"code":"SERVICE_UNAVAILABLE"`)
}

type statsPinger struct{}

func (statsPinger) Ping(context.Context) error { return nil }
func (statsPinger) GetStats() map[string]interface{} {
	return map[string]interface{}{"size": 3, "hit_ratio": 0.5}
}

func TestHealthCheckReportsDependencyStats(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	h := NewHandler("1", stubUpstream{}, map[string]Pinger{"database": ok, "cache": statsPinger{}})

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stats":{"cache":{"hit_ratio":0.5,"size":3}}`)
	assert.NotContains(t, w.Body.String(), `"database":{`)
}

func TestReadinessCheckBoundsPing(t *testing.T) {
	slow := pingFunc(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	})
	w := serve(NewHandler("1", nil, map[string]Pinger{"cache": slow}), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLivenessCheck(t *testing.T) {
	w := serve(NewHandler("1", nil, nil), "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")
}
