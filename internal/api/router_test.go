package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cart-recommender/internal/api/handlers/health"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/core/recommend"
	"cart-recommender/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecommender struct{}

func (stubRecommender) Recommend(context.Context, recommend.Request) (*recommend.Result, error) {
	return &recommend.Result{Source: recommend.SourceNone}, nil
}

type stubCart struct{}

func (stubCart) CheckAddToCart(_ context.Context, _, productID string) (*recommend.AddToCartResult, error) {
	return &recommend.AddToCartResult{Allowed: true, Product: &catalog.Product{ID: productID}}, nil
}

type stubProducts struct{}

func (stubProducts) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	return &catalog.Product{ID: id}, nil
}

func (stubProducts) Search(context.Context, catalog.SearchFilter) ([]catalog.Product, error) {
	return nil, nil
}

func (stubProducts) ListByCategory(context.Context, string, int, int) ([]catalog.Product, int64, error) {
	return nil, 0, nil
}

type stubUsers struct{}

func (stubUsers) FindByID(_ context.Context, id string) (*catalog.User, error) {
	return &catalog.User{ID: id}, nil
}

func (stubUsers) Create(context.Context, *catalog.User) error { return nil }

func (stubUsers) RecordOrder(_ context.Context, id string, _ catalog.Order) (*catalog.User, error) {
	return &catalog.User{ID: id}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Version: "test", Debug: true},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowOrigins:   []string{"*"},
		},
		RateLimit:   config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		DedupWindow: time.Minute,
	}
}

func testDeps() Dependencies {
	return Dependencies{
		Recommender: stubRecommender{},
		Cart:        stubCart{},
		Products:    stubProducts{},
		Users:       stubUsers{},
		Checks:      map[string]health.Pinger{"database": okPinger{}},
	}
}

func TestSetupRouterRequiresDependencies(t *testing.T) {
	deps := testDeps()
	deps.Recommender = nil

	_, err := SetupRouter(testConfig(), deps)
	assert.Error(t, err)
}

func TestRouterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := SetupRouter(testConfig(), testDeps())
	require.NoError(t, err)

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/live", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products?query=milk", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products/category/dairy", "", http.StatusOK},
		{http.MethodGet, "/api/v1/products/p00001", "", http.StatusOK},
		{http.MethodGet, "/api/v1/users/u1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/cart/recommendations", `{"userId":"u1","cartItems":[]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.target)
	}
}

func TestRouterSuppressesDuplicateAddToCart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := SetupRouter(testConfig(), testDeps())
	require.NoError(t, err)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader(`{"productId":"p00001"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "u1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRouterSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := SetupRouter(testConfig(), testDeps())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
