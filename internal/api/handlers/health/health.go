package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"cart-recommender/internal/core/ai/queue"
	"cart-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// Pinger 可檢查連線的相依服務（資料庫、快取）
type Pinger interface {
	Ping(ctx context.Context) error
}

// Upstream 生成模型服務的熔斷與排隊狀態
type Upstream interface {
	Name() string
	BreakerState() string
	QueueStatus() *queue.Status
}

// StatsReporter 可回報統計資訊的相依服務（例如記憶體快取）
type StatsReporter interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Upstream  *UpstreamStatus        `json:"upstream,omitempty"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// UpstreamStatus 生成模型狀態
type UpstreamStatus struct {
	Provider string `json:"provider"`
	Breaker  string `json:"breaker"`
}

// Handler 健康檢查處理程序
type Handler struct {
	version  string
	upstream Upstream
	checks   map[string]Pinger
}

// NewHandler 創建健康檢查處理程序；checks 的鍵為相依服務名稱
func NewHandler(version string, upstream Upstream, checks map[string]Pinger) *Handler {
	return &Handler{version: version, upstream: upstream, checks: checks}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.upstream != nil {
		response.Upstream = &UpstreamStatus{
			Provider: h.upstream.Name(),
			Breaker:  h.upstream.BreakerState(),
		}
		response.Queue = h.upstream.QueueStatus()
	}
	for name, check := range h.checks {
		if reporter, ok := check.(StatsReporter); ok {
			if response.Stats == nil {
				response.Stats = make(map[string]interface{})
			}
			response.Stats[name] = reporter.GetStats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 逐一檢查資料庫與快取連線，任一失敗回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		err := h.checks[name].Ping(ctx)
		cancel()

		if err != nil {
			ready = false
			results[name] = err.Error()
			common.LogWarn("相依服務未就緒",
				zap.String("dependency", name),
				zap.Error(err),
			)
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		status, code := common.StatusOf(common.ErrServiceUnavailable)
		c.JSON(status, gin.H{
			"status": "not_ready",
			"error":  common.ErrServiceUnavailable.Error(),
			"code":   code,
			"checks": results,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": results,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
