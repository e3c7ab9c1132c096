package product

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"cart-recommender/internal/api/handlers"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store 商品查詢
type Store interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
	Search(ctx context.Context, filter catalog.SearchFilter) ([]catalog.Product, error)
	ListByCategory(ctx context.Context, category string, limit, offset int) ([]catalog.Product, int64, error)
}

// Handler 商品處理程序
type Handler struct {
	products Store
}

// NewHandler 創建商品處理程序
func NewHandler(products Store) *Handler {
	return &Handler{products: products}
}

// HandleSearch 依名稱、分類與價格區間搜尋商品
func (h *Handler) HandleSearch(c *gin.Context) {
	filter := catalog.SearchFilter{
		Query:    c.Query("query"),
		Category: c.Query("category"),
	}

	var err error
	if filter.MinPrice, err = floatQuery(c, "minPrice"); err != nil {
		handlers.RespondError(c, err)
		return
	}
	if filter.MaxPrice, err = floatQuery(c, "maxPrice"); err != nil {
		handlers.RespondError(c, err)
		return
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		handlers.RespondError(c, common.NewValidationError("minPrice must not exceed maxPrice"))
		return
	}

	products, err := h.products.Search(c.Request.Context(), filter)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// HandleListByCategory 分頁列出分類商品
func (h *Handler) HandleListByCategory(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultPageSize)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	products, total, err := h.products.ListByCategory(c.Request.Context(), c.Param("category"), limit, offset)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// HandleGetByID 讀取單一商品
func (h *Handler) HandleGetByID(c *gin.Context) {
	id := c.Param("id")
	if !common.IsProductID(id) {
		handlers.RespondError(c, common.NewValidationError(fmt.Sprintf("invalid product id: %q", id)))
		return
	}

	product, err := h.products.FindByID(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func floatQuery(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be a non-negative number", name))
	}
	return v, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}
