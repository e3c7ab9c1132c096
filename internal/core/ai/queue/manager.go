package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"cart-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 等待中的請求已達上限
	ErrQueueFull = errors.New("queue is full")
	// ErrClosed 隊列已關閉
	ErrClosed = errors.New("queue manager is closed")
)

// Status 隊列狀態
type Status struct {
	InFlight       int   `json:"in_flight"`
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 限制同時進行的生成模型呼叫；名額用完時最多排隊 maxSize 個請求
type Manager struct {
	slots     chan struct{}
	maxSize   int
	waiting   atomic.Int64
	processed atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize < 0 {
		maxSize = 0
	}
	return &Manager{
		slots:   make(chan struct{}, workers),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
}

// Do 取得執行名額後呼叫 fn；排隊中呼叫端取消時回傳 ctx.Err()
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.slots <- struct{}{}:
	default:
		if err := m.wait(ctx); err != nil {
			return err
		}
	}
	defer func() {
		<-m.slots
		m.processed.Add(1)
	}()

	return fn(ctx)
}

func (m *Manager) wait(ctx context.Context) error {
	if n := m.waiting.Add(1); n > int64(m.maxSize) {
		m.waiting.Add(-1)
		common.LogWarn("Queue is full",
			zap.Int64("queue_length", n-1),
			zap.Int("max_queue_size", m.maxSize),
		)
		return ErrQueueFull
	}
	defer m.waiting.Add(-1)

	select {
	case m.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		InFlight:       len(m.slots),
		QueueLength:    int(m.waiting.Load()),
		ProcessedCount: m.processed.Load(),
		MaxQueueSize:   m.maxSize,
		Workers:        cap(m.slots),
	}
}

// Close 關閉隊列管理器，排隊中的請求立即失敗
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
