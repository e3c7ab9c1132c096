package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests 快取讀取結果：hit / miss / error
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_cache_requests_total",
			Help: "Total number of pipeline cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	// CacheWriteErrors 快取寫入失敗次數
	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_cache_write_errors_total",
			Help: "Total number of failed pipeline cache writes",
		},
		[]string{"cache"},
	)

	// UpstreamRequests 生成模型請求結果
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_upstream_requests_total",
			Help: "Total number of generative model calls by provider and outcome",
		},
		[]string{"provider", "outcome"}, // success, error, timeout, breaker_open, queue_full
	)

	// UpstreamDuration 生成模型請求耗時
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_upstream_request_duration_seconds",
			Help:    "Duration of generative model calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	// BreakerState 熔斷器狀態（0=closed, 1=half-open, 2=open）
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cart_upstream_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// Recommendations 推薦流程結果，依來源分類
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_recommendations_total",
			Help: "Total number of recommendation runs by source",
		},
		[]string{"source"}, // model, fallback, empty, error, cache
	)

	// RecommendationDuration 推薦流程耗時
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cart_recommendation_duration_seconds",
			Help:    "Duration of recommendation pipeline runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HarmfulResolutions 有害食材解析結果
	HarmfulResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_harmful_resolutions_total",
			Help: "Total number of harmful ingredient resolutions by outcome",
		},
		[]string{"outcome"}, // cached, resolved, empty, failed_open
	)

	// CartChecks 加入購物車健康檢查結果
	CartChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_add_checks_total",
			Help: "Total number of add-to-cart health checks by verdict",
		},
		[]string{"verdict"}, // allowed, rejected
	)

	// APIRequests HTTP 請求計數
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIDuration HTTP 請求耗時
	APIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordCacheLookup 記錄快取讀取
func RecordCacheLookup(cache string, hit bool, err error) {
	switch {
	case err != nil:
		CacheRequests.WithLabelValues(cache, "error").Inc()
	case hit:
		CacheRequests.WithLabelValues(cache, "hit").Inc()
	default:
		CacheRequests.WithLabelValues(cache, "miss").Inc()
	}
}

// RecordUpstream 記錄一次生成模型呼叫
func RecordUpstream(provider, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(provider, outcome).Inc()
	UpstreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRecommendation 記錄推薦流程結果
func RecordRecommendation(source string, duration time.Duration) {
	Recommendations.WithLabelValues(source).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordAPIRequest 記錄 HTTP 請求
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, status).Inc()
	APIDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
