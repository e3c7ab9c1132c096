package recommend

import (
	"context"
	"time"

	"cart-recommender/internal/core/catalog"
)

// 目前商品的健康判定
const (
	StatusHealthy = "healthy"
	StatusHarmful = "harmful"
)

// 推薦結果來源
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
	SourceNone     = "none"
)

// 提前結束時的說明文字
const (
	ExplanationNoCategoryProducts = "No products in same category"
	ExplanationNoHealthyProducts  = "No healthy products found"
	ExplanationNoBudgetProducts   = "No products matched budget"
)

// FallbackReasoning 本地評分挑選時每筆推薦附帶的理由
const FallbackReasoning = "High health index for your health conditions"

// Generator 生成模型：輸入提示詞，回傳未經信任的文字
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UserReader 讀取使用者健康資料、平均訂單金額與購買紀錄
type UserReader interface {
	FindByID(ctx context.Context, id string) (*catalog.User, error)
}

// ProductReader 推薦流程需要的商品查詢
type ProductReader interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
	FindByCategory(ctx context.Context, category string) ([]catalog.Product, error)
	DistinctIngredients(ctx context.Context) ([]string, error)
}

// CartItem 觸發推薦的購物車商品
type CartItem struct {
	ID          string   `json:"id" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Ingredients []string `json:"ingredients" validate:"required"`
}

// Request 推薦請求；第一個購物車商品為觸發推薦的目前商品
type Request struct {
	UserID    string     `json:"userId" validate:"required"`
	CartItems []CartItem `json:"cartItems" validate:"required,min=1,dive"`
}

// CurrentItemStatus 目前商品是否含有對使用者有害的食材
type CurrentItemStatus struct {
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	Message            string   `json:"message"`
	HarmfulIngredients []string `json:"harmfulIngredients"`
}

// Recommendation 推薦商品與理由
type Recommendation struct {
	catalog.Product
	Reasoning string `json:"reasoning"`
}

// NutritionMetric 推薦商品的營養指標
type NutritionMetric struct {
	ID          string  `json:"id"`
	HealthIndex int     `json:"healthIndex"`
	ValueScore  float64 `json:"valueScore"`
}

// Result 推薦流程的完整輸出，也是快取的內容
type Result struct {
	Recommendations   []Recommendation   `json:"recommendations"`
	Metrics           []NutritionMetric  `json:"metrics"`
	Explanation       string             `json:"explanation"`
	Source            string             `json:"source"`
	CurrentItemStatus *CurrentItemStatus `json:"currentItemStatus"`
	Timestamp         time.Time          `json:"timestamp"`
	ExpiresAt         *time.Time         `json:"expiresAt,omitempty"`
	Error             string             `json:"error,omitempty"`
}

func emptyResult(now time.Time) *Result {
	return &Result{
		Recommendations: []Recommendation{},
		Metrics:         []NutritionMetric{},
		Source:          SourceNone,
		Timestamp:       now,
	}
}
