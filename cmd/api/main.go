package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cart-recommender/internal/api"
	"cart-recommender/internal/api/handlers/health"
	"cart-recommender/internal/core/ai/service"
	"cart-recommender/internal/core/cache"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/core/recommend"
	"cart-recommender/internal/infrastructure/config"
	"cart-recommender/internal/infrastructure/database"
	"cart-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含可選的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("top_n", cfg.Recommend.TopN),
	)

	ctx := context.Background()

	// 資料庫
	db, err := database.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := catalog.AutoMigrate(db); err != nil {
			common.LogFatal("Failed to migrate database", zap.Error(err))
		}
	}

	// 快取：有害食材與推薦結果共用同一個儲存後端
	store, err := cache.NewStore(ctx, cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache store", zap.Error(err))
	}
	defer store.Close()
	harmfulCache := cache.NewPipelineCache(store, "harmful")
	resultCache := cache.NewPipelineCache(store, "recommendations")

	// 生成模型
	provider, err := service.NewProvider(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize ai provider", zap.Error(err))
	}
	aiService := service.NewService(provider, cfg.AI)
	defer aiService.Close()

	// 推薦流程
	products := catalog.NewProductRepository(db, cfg.Recommend.CatalogBatchSize, cfg.Recommend.LookupConcurrency)
	users := catalog.NewUserRepository(db)
	resolver := recommend.NewHarmfulIngredientResolver(aiService, products, harmfulCache, cfg.Recommend.HarmfulTTL)
	engine := recommend.NewEngine(users, products, resolver, aiService, resultCache, recommend.Options{
		ResultTTL: cfg.Recommend.ResultTTL,
		TopN:      cfg.Recommend.TopN,
	})
	cartService := recommend.NewCartService(users, products, resolver)

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Recommender: engine,
		Cart:        cartService,
		Products:    products,
		Users:       users,
		Upstream:    aiService,
		Checks: map[string]health.Pinger{
			"database": database.NewPinger(db),
			"cache":    store,
		},
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
