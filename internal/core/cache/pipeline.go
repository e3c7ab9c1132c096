package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-recommender/internal/infrastructure/config"
	"cart-recommender/internal/infrastructure/metrics"
	"cart-recommender/internal/pkg/common"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// PipelineCache 推薦流程使用的 JSON 快取；任何讀寫錯誤只記錄日誌，不會中斷流程
type PipelineCache struct {
	store Store
	name  string
}

// NewPipelineCache 建立具名的流程快取，name 用於日誌與指標
func NewPipelineCache(store Store, name string) *PipelineCache {
	return &PipelineCache{store: store, name: name}
}

// Get 讀取並解碼到 dst；未命中或任何錯誤都回傳 false
func (c *PipelineCache) Get(ctx context.Context, key string, dst interface{}) bool {
	if c == nil || c.store == nil {
		return false
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			metrics.RecordCacheLookup(c.name, false, nil)
			common.LogCacheMiss(c.name, key)
			return false
		}
		metrics.RecordCacheLookup(c.name, false, err)
		common.LogWarn("快取讀取失敗，視為未命中",
			zap.Error(&common.CacheError{Op: "get", Key: key, Err: err}),
		)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheLookup(c.name, false, err)
		common.LogWarn("快取內容無法解析，視為未命中",
			zap.Error(&common.CacheError{Op: "decode", Key: key, Err: err}),
		)
		return false
	}

	metrics.RecordCacheLookup(c.name, true, nil)
	common.LogCacheHit(c.name, key)
	return true
}

// Set 編碼並寫入，失敗時記錄日誌後繼續
func (c *PipelineCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}

	data, err := json.Marshal(value)
	if err == nil {
		err = c.store.Set(ctx, key, data, ttl)
	}
	if err != nil {
		metrics.CacheWriteErrors.WithLabelValues(c.name).Inc()
		common.LogWarn("快取寫入失敗",
			zap.Error(&common.CacheError{Op: "set", Key: key, Err: err}),
		)
		return
	}
	common.LogDebug("快取已儲存", zap.String("類型", c.name), zap.String("鍵", key), zap.Duration("ttl", ttl))
}

// NewStore 依設定建立快取後端
func NewStore(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory", "":
		return NewMemoryStore(cfg.MaxSize, WithCleanupInterval(cfg.CleanupInterval)), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %q", cfg.Backend)
	}
}
