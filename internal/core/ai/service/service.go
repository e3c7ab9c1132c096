package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-recommender/internal/core/ai/gemini"
	"cart-recommender/internal/core/ai/openrouter"
	"cart-recommender/internal/core/ai/provider"
	"cart-recommender/internal/core/ai/queue"
	"cart-recommender/internal/infrastructure/config"
	"cart-recommender/internal/infrastructure/metrics"
	"cart-recommender/internal/pkg/common"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Service 包裝生成模型：限時、並行上限、熔斷、指標與日誌；所有失敗都以 UpstreamError 回傳
type Service struct {
	provider provider.Provider
	cb       *gobreaker.CircuitBreaker[string]
	queue    *queue.Manager
	timeout  time.Duration
}

// NewProvider 依設定建立生成模型提供者
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.AI.Provider {
	case "openrouter":
		return openrouter.NewClient(provider.Config{
			APIKey:    cfg.OpenRouter.APIKey,
			Model:     cfg.OpenRouter.Model,
			BaseURL:   cfg.OpenRouter.BaseURL,
			MaxTokens: cfg.OpenRouter.MaxTokens,
			Timeout:   cfg.AI.Timeout,
		}), nil
	case "gemini":
		return gemini.NewClient(provider.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.AI.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %q", cfg.AI.Provider)
	}
}

// NewService 創建 AI 服務
func NewService(p provider.Provider, cfg config.AIConfig) *Service {
	name := p.Name()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// 呼叫端取消不算上游失敗
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("熔斷器狀態變更",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	workers := cfg.Queue.Workers
	if workers <= 0 {
		workers = 8
	}

	return &Service{
		provider: p,
		cb:       cb,
		queue:    queue.NewManager(workers, cfg.Queue.MaxSize),
		timeout:  cfg.Timeout,
	}
}

// Name 提供者名稱
func (s *Service) Name() string {
	return s.provider.Name()
}

// Generate 呼叫生成模型；逾時與其他傳輸錯誤一視同仁
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name := s.provider.Name()
	start := time.Now()
	var text string
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = s.cb.Execute(func() (string, error) {
			return s.provider.Generate(ctx, prompt)
		})
		return err
	})
	duration := time.Since(start)

	metrics.RecordUpstream(name, outcomeOf(err), duration)
	common.LogAICall(name, duration, err)

	if err != nil {
		return "", common.NewUpstreamError(name, err)
	}
	return text, nil
}

// State 目前熔斷器狀態
func (s *Service) State() gobreaker.State {
	return s.cb.State()
}

// BreakerState 熔斷器狀態字串（closed、half-open、open）
func (s *Service) BreakerState() string {
	return s.cb.State().String()
}

// QueueStatus 生成模型呼叫的排隊狀態
func (s *Service) QueueStatus() *queue.Status {
	return s.queue.GetQueueStatus()
}

// Close 關閉隊列與提供者
func (s *Service) Close() error {
	s.queue.Close()
	return s.provider.Close()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, queue.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
