package user

import (
	"context"
	"net/http"

	"cart-recommender/internal/api/handlers"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Store 使用者資料存取
type Store interface {
	FindByID(ctx context.Context, id string) (*catalog.User, error)
	Create(ctx context.Context, user *catalog.User) error
	RecordOrder(ctx context.Context, userID string, order catalog.Order) (*catalog.User, error)
}

// ProductFinder 記錄訂單時讀取商品快照
type ProductFinder interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
}

// CreateUserRequest 建立使用者
type CreateUserRequest struct {
	Name               string   `json:"name" binding:"required"`
	Age                int      `json:"age" binding:"required,gt=0,lt=150"`
	HealthConditions   []string `json:"healthConditions" binding:"required"`
	DietaryPreferences []string `json:"dietaryPreferences"`
}

// RecordOrderRequest 新增購買紀錄
type RecordOrderRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// Handler 使用者處理程序
type Handler struct {
	users    Store
	products ProductFinder
}

// NewHandler 創建使用者處理程序
func NewHandler(users Store, products ProductFinder) *Handler {
	return &Handler{users: users, products: products}
}

// HandleCreate 建立使用者
func (h *Handler) HandleCreate(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}

	user := &catalog.User{
		Name:               req.Name,
		Age:                req.Age,
		HealthConditions:   req.HealthConditions,
		DietaryPreferences: req.DietaryPreferences,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("使用者已建立",
		zap.String("request_id", handlers.RequestID(c)),
		zap.String("user_id", user.ID),
		zap.Strings("health_conditions", user.HealthConditions),
	)
	c.JSON(http.StatusCreated, user)
}

// HandleGet 讀取使用者與購買紀錄
func (h *Handler) HandleGet(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// HandleRecordOrder 以商品目前的資料新增購買紀錄，並回傳更新後的使用者
func (h *Handler) HandleRecordOrder(c *gin.Context) {
	var req RecordOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}
	if !common.IsProductID(req.ProductID) {
		handlers.RespondError(c, common.NewValidationError("invalid product id: "+req.ProductID))
		return
	}

	ctx := c.Request.Context()
	product, err := h.products.FindByID(ctx, req.ProductID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	user, err := h.users.RecordOrder(ctx, c.Param("id"), catalog.Order{
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		Nutrition: product.Nutrition,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
