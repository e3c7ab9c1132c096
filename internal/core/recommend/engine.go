package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cart-recommender/internal/core/cache"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/infrastructure/metrics"
	"cart-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Options 推薦引擎設定
type Options struct {
	ResultTTL time.Duration
	TopN      int
}

// Engine 推薦流程：快取檢查、健康與預算過濾、排序、模型挑選或本地評分、指標計算、寫入快取
type Engine struct {
	users    UserReader
	products ProductReader
	resolver *HarmfulIngredientResolver
	gen      Generator
	cache    *cache.PipelineCache
	opts     Options
	now      func() time.Time
}

// NewEngine 創建推薦引擎
func NewEngine(users UserReader, products ProductReader, resolver *HarmfulIngredientResolver, gen Generator, pc *cache.PipelineCache, opts Options) *Engine {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 30 * time.Minute
	}
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	return &Engine{
		users:    users,
		products: products,
		resolver: resolver,
		gen:      gen,
		cache:    pc,
		opts:     opts,
		now:      time.Now,
	}
}

// ResultCacheKey recs:<userId>:<category>:<currentItemId>
func ResultCacheKey(userID, category, itemID string) string {
	return fmt.Sprintf("recs:%s:%s:%s", userID, category, itemID)
}

// Recommend 執行推薦流程。結果永遠不為 nil；
// 驗證錯誤、使用者或商品不存在以及資料讀取失敗會同時回傳 error，並在結果中帶 Error 欄位
func (e *Engine) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := e.now()
	result, source, err := e.run(ctx, req)
	if err != nil {
		result = emptyResult(e.now().UTC())
		result.Error = err.Error()
		source = "error"
		common.LogWarn("推薦流程中止",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	}
	metrics.RecordRecommendation(source, e.now().Sub(start))
	return result, err
}

func (e *Engine) run(ctx context.Context, req Request) (*Result, string, error) {
	// 驗證在任何資料存取之前完成
	if err := common.ValidateStruct(&req); err != nil {
		return nil, "", err
	}

	user, err := e.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, "", err
	}

	item := req.CartItems[0]
	current, err := e.products.FindByID(ctx, item.ID)
	if err != nil {
		return nil, "", err
	}

	category := strings.ToLower(strings.TrimSpace(current.Category))
	if category == "" {
		category = strings.ToLower(strings.TrimSpace(item.Category))
	}

	key := ResultCacheKey(req.UserID, category, current.ID)
	var cached Result
	if e.cache.Get(ctx, key, &cached) && len(cached.Recommendations) > 0 {
		return &cached, "cache", nil
	}

	harmful := e.resolver.Resolve(ctx, user.HealthConditions)

	ingredients := current.Ingredients
	if len(ingredients) == 0 {
		ingredients = item.Ingredients
	}
	status := currentItemStatus(current.ID, ingredients, harmful, user.HealthConditions)

	result := emptyResult(e.now().UTC())
	result.CurrentItemStatus = status

	categoryProducts, err := e.products.FindByCategory(ctx, category)
	if err != nil {
		return nil, "", err
	}
	if len(categoryProducts) == 0 {
		result.Explanation = ExplanationNoCategoryProducts
		return result, "empty", nil
	}

	safe := RetainSafe(categoryProducts, harmful)
	if len(safe) == 0 {
		result.Explanation = ExplanationNoHealthyProducts
		return result, "empty", nil
	}

	affordable := WithinBudget(safe, user.AverageOrderValue)
	if len(affordable) == 0 {
		result.Explanation = ExplanationNoBudgetProducts
		return result, "empty", nil
	}

	ranked := RankCandidates(user.PreviousOrders, category, affordable)

	recs, source := e.pick(ctx, user, ranked, category)
	result.Recommendations = recs
	result.Source = source
	result.Metrics = ComputeNutritionMetrics(recs)
	result.Explanation = explanationFor(source, len(ranked))
	expires := result.Timestamp.Add(e.opts.ResultTTL)
	result.ExpiresAt = &expires

	// 呼叫端中斷後仍完成快取寫入
	e.cache.Set(context.WithoutCancel(ctx), key, result, e.opts.ResultTTL)

	common.LogInfo("推薦完成",
		zap.String("user_id", req.UserID),
		zap.String("category", category),
		zap.String("source", source),
		zap.Int("candidates", len(ranked)),
		zap.Int("recommendations", len(recs)),
	)
	return result, source, nil
}

// pick 交給生成模型挑選；傳輸、解析、驗證失敗或沒有可用結果時改用本地健康分數
func (e *Engine) pick(ctx context.Context, user *catalog.User, ranked []catalog.Product, category string) ([]Recommendation, string) {
	raw, err := e.gen.Generate(ctx, BuildRankingPrompt(user, ranked, category, e.opts.TopN))
	if err == nil {
		var picks []RankedPick
		picks, err = ParseRankingResponse(raw)
		if err == nil {
			if recs := MapPicks(picks, ranked, e.opts.TopN); len(recs) > 0 {
				return recs, SourceModel
			}
			err = fmt.Errorf("no ranked id matched a candidate")
		}
	}

	common.LogWarn("模型排序失敗，改用本地健康分數",
		zap.String("category", category),
		zap.Error(err),
	)
	return FallbackPicks(ranked, e.opts.TopN), SourceFallback
}

func currentItemStatus(id string, ingredients []string, harmful HarmfulIngredientSet, conditions []string) *CurrentItemStatus {
	found := harmful.Intersect(ingredients)
	if len(found) == 0 {
		return &CurrentItemStatus{
			ID:                 id,
			Status:             StatusHealthy,
			Message:            "This item meets your health requirements",
			HarmfulIngredients: found,
		}
	}
	return &CurrentItemStatus{
		ID:     id,
		Status: StatusHarmful,
		Message: fmt.Sprintf("Contains ingredients (%s) that may worsen %s",
			strings.Join(found, ", "), strings.Join(conditions, ", ")),
		HarmfulIngredients: found,
	}
}

func explanationFor(source string, candidates int) string {
	if source == SourceModel {
		return fmt.Sprintf("Selected by the ranking model from %d health- and budget-filtered candidates", candidates)
	}
	return fmt.Sprintf("Ranked by health index from %d health- and budget-filtered candidates", candidates)
}
