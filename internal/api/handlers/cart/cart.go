package cart

import (
	"context"
	"net/http"

	"cart-recommender/internal/api/handlers"
	"cart-recommender/internal/core/recommend"
	"cart-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recommender 推薦流程
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// Checker 加入購物車前的健康檢查
type Checker interface {
	CheckAddToCart(ctx context.Context, userID, productID string) (*recommend.AddToCartResult, error)
}

// AddToCartRequest 加入購物車請求
type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// Handler 購物車處理程序
type Handler struct {
	recommender Recommender
	checker     Checker
}

// NewHandler 創建購物車處理程序
func NewHandler(recommender Recommender, checker Checker) *Handler {
	return &Handler{
		recommender: recommender,
		checker:     checker,
	}
}

// HandleRecommendations 依購物車第一個商品產生同分類推薦
func (h *Handler) HandleRecommendations(c *gin.Context) {
	requestID := handlers.RequestID(c)

	var req recommend.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetHeader(handlers.UserIDHeader)
	}

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestID),
		zap.String("user_id", req.UserID),
		zap.Int("cart_items", len(req.CartItems)),
	)

	result, err := h.recommender.Recommend(c.Request.Context(), req)
	if err != nil {
		// 失敗時仍回傳空的推薦清單
		recs := []recommend.Recommendation{}
		if result != nil && result.Recommendations != nil {
			recs = result.Recommendations
		}
		handlers.RespondErrorWith(c, err, gin.H{"recommendations": recs})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleAddToCart 商品含有使用者的有害食材時拒絕加入
func (h *Handler) HandleAddToCart(c *gin.Context) {
	requestID := handlers.RequestID(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}
	userID := c.GetHeader(handlers.UserIDHeader)

	result, err := h.checker.CheckAddToCart(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if !result.Allowed {
		common.LogInfo("商品含有害食材，拒絕加入購物車",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("product_id", req.ProductID),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              result.Message,
			"code":               common.ErrCodeHarmfulIngredient,
			"harmfulIngredients": result.HarmfulIngredients,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
