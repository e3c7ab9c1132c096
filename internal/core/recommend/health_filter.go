package recommend

import (
	"context"

	"cart-recommender/internal/core/catalog"
)

// HealthFilter 移除含有有害食材的商品。
// 以商品 ID 為輸入的獨立入口，供外部呼叫端使用；推薦引擎已載入使用者資料，直接呼叫 RetainSafe
type HealthFilter struct {
	users    UserReader
	products ProductReader
	resolver *HarmfulIngredientResolver
}

// NewHealthFilter 創建健康過濾器
func NewHealthFilter(users UserReader, products ProductReader, resolver *HarmfulIngredientResolver) *HealthFilter {
	return &HealthFilter{users: users, products: products, resolver: resolver}
}

// Filter 依使用者健康狀況過濾商品 ID；有害集合為空時原樣回傳
func (f *HealthFilter) Filter(ctx context.Context, userID string, productIDs []string) ([]string, error) {
	user, err := f.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	harmful := f.resolver.Resolve(ctx, user.HealthConditions)
	if harmful.Len() == 0 {
		return productIDs, nil
	}

	products, err := f.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	safe := RetainSafe(products, harmful)
	ids := make([]string, 0, len(safe))
	for _, p := range safe {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// RetainSafe 保留食材與有害集合沒有交集的商品
func RetainSafe(products []catalog.Product, harmful HarmfulIngredientSet) []catalog.Product {
	if harmful.Len() == 0 {
		return products
	}
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if len(harmful.Intersect(p.Ingredients)) == 0 {
			out = append(out, p)
		}
	}
	return out
}
