package recommend

import (
	"context"
	"fmt"
	"strings"

	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/infrastructure/metrics"
	"cart-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// AddToCartResult 加入購物車前的健康檢查結果
type AddToCartResult struct {
	Allowed            bool             `json:"success"`
	Product            *catalog.Product `json:"product,omitempty"`
	Message            string           `json:"message,omitempty"`
	HarmfulIngredients []string         `json:"harmfulIngredients,omitempty"`
}

// CartService 加入購物車前重新解析有害食材，與推薦流程互相獨立
type CartService struct {
	users    UserReader
	products ProductReader
	resolver *HarmfulIngredientResolver
}

// NewCartService 創建購物車服務
func NewCartService(users UserReader, products ProductReader, resolver *HarmfulIngredientResolver) *CartService {
	return &CartService{users: users, products: products, resolver: resolver}
}

// CheckAddToCart 商品食材與使用者有害集合有交集時拒絕加入，並列出有害食材
func (s *CartService) CheckAddToCart(ctx context.Context, userID, productID string) (*AddToCartResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("userId is required")
	}
	if !common.IsProductID(productID) {
		return nil, common.NewValidationError(fmt.Sprintf("invalid product id: %q", productID))
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	harmful := s.resolver.Resolve(ctx, user.HealthConditions)
	if found := harmful.Intersect(product.Ingredients); len(found) > 0 {
		metrics.CartChecks.WithLabelValues("rejected").Inc()
		common.LogInfo("加入購物車被拒絕",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Strings("harmful", found),
		)
		return &AddToCartResult{
			Allowed: false,
			Message: fmt.Sprintf("This product contains ingredients (%s) that may not be suitable for your health conditions: %s",
				strings.Join(found, ", "), strings.Join(user.HealthConditions, ", ")),
			HarmfulIngredients: found,
		}, nil
	}

	metrics.CartChecks.WithLabelValues("allowed").Inc()
	return &AddToCartResult{Allowed: true, Product: product}, nil
}
