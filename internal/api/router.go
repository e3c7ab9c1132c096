package api

import (
	"fmt"
	"time"

	cartHandler "cart-recommender/internal/api/handlers/cart"
	"cart-recommender/internal/api/handlers/health"
	productHandler "cart-recommender/internal/api/handlers/product"
	userHandler "cart-recommender/internal/api/handlers/user"
	"cart-recommender/internal/api/middleware"
	"cart-recommender/internal/infrastructure/config"
	"cart-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Recommender cartHandler.Recommender
	Cart        cartHandler.Checker
	Products    productHandler.Store
	Users       userHandler.Store
	Upstream    health.Upstream
	Checks      map[string]health.Pinger
}

func (d Dependencies) validate() error {
	switch {
	case d.Recommender == nil:
		return fmt.Errorf("recommender is required")
	case d.Cart == nil:
		return fmt.Errorf("cart service is required")
	case d.Products == nil:
		return fmt.Errorf("product store is required")
	case d.Users == nil:
		return fmt.Errorf("user store is required")
	}
	return nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if err := deps.validate(); err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 健康檢查與指標路由不受限流影響
	healthHandler := health.NewHandler(cfg.App.Version, deps.Upstream, deps.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		carts := cartHandler.NewHandler(deps.Recommender, deps.Cart)
		dedup := middleware.NewDeduplicator(cfg.DedupWindow)

		cartGroup := api.Group("/cart")
		{
			cartGroup.POST("/recommendations", carts.HandleRecommendations)
			cartGroup.POST("/add", dedup.Middleware(), carts.HandleAddToCart)
		}

		products := productHandler.NewHandler(deps.Products)
		productGroup := api.Group("/products")
		{
			productGroup.GET("", products.HandleSearch)
			productGroup.GET("/category/:category", products.HandleListByCategory)
			productGroup.GET("/:id", products.HandleGetByID)
		}

		users := userHandler.NewHandler(deps.Users, deps.Products)
		userGroup := api.Group("/users")
		{
			userGroup.POST("", users.HandleCreate)
			userGroup.GET("/:id", users.HandleGet)
			userGroup.POST("/:id/orders", users.HandleRecordOrder)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Int("dependency_checks", len(deps.Checks)),
	)

	return router, nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
