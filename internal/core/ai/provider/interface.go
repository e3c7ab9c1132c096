package provider

import (
	"context"
	"time"
)

// Provider 生成模型介面：輸入提示詞，回傳模型的原始文字
type Provider interface {
	// Generate 生成 AI 響應
	Generate(ctx context.Context, prompt string) (string, error)

	// Name 提供者名稱（用於日誌與指標）
	Name() string

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}
