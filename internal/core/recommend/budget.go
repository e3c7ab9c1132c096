package recommend

import (
	"context"

	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"
)

// BudgetRange 含兩端的價格區間
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BudgetRangeFor 以平均訂單金額的 70%～130% 為預算區間（兩位小數）；沒有平均金額時回傳 false
func BudgetRangeFor(avg float64) (BudgetRange, bool) {
	if avg <= 0 {
		return BudgetRange{}, false
	}
	return BudgetRange{
		Min: common.Round2(avg * 0.7),
		Max: common.Round2(avg * 1.3),
	}, true
}

// Contains 價格是否落在區間內
func (r BudgetRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// WithinBudget 保留價格落在使用者預算區間內的商品；新使用者回傳空清單
func WithinBudget(products []catalog.Product, avg float64) []catalog.Product {
	budget, ok := BudgetRangeFor(avg)
	if !ok {
		return []catalog.Product{}
	}
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if budget.Contains(p.Price) {
			out = append(out, p)
		}
	}
	return out
}

// BudgetFilter 依使用者歷史平均訂單金額過濾商品。
// 以商品 ID 為輸入的獨立入口，供外部呼叫端使用；推薦引擎直接呼叫 WithinBudget
type BudgetFilter struct {
	users    UserReader
	products ProductReader
}

// NewBudgetFilter 創建預算過濾器
func NewBudgetFilter(users UserReader, products ProductReader) *BudgetFilter {
	return &BudgetFilter{users: users, products: products}
}

// Filter 回傳落在預算區間內的商品 ID
func (f *BudgetFilter) Filter(ctx context.Context, userID string, productIDs []string) ([]string, error) {
	user, err := f.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := BudgetRangeFor(user.AverageOrderValue); !ok {
		return []string{}, nil
	}

	products, err := f.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	kept := WithinBudget(products, user.AverageOrderValue)
	ids := make([]string, 0, len(kept))
	for _, p := range kept {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
