package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 表示鍵不存在或已過期
var ErrMiss = errors.New("cache: miss")

// Store 鍵值儲存介面，Set 為 upsert 並重設過期時間
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
