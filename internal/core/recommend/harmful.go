package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cart-recommender/internal/core/cache"
	"cart-recommender/internal/infrastructure/metrics"
	"cart-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

const harmfulCachePrefix = "harmful_ingredients_"

// HarmfulIngredientSet 正規化後的有害食材集合
type HarmfulIngredientSet struct {
	items map[string]struct{}
}

// NewHarmfulIngredientSet 由任意大小寫的食材建立集合
func NewHarmfulIngredientSet(ingredients []string) HarmfulIngredientSet {
	items := make(map[string]struct{}, len(ingredients))
	for _, ing := range common.NormalizeIngredients(ingredients) {
		items[ing] = struct{}{}
	}
	return HarmfulIngredientSet{items: items}
}

// Len 集合大小
func (s HarmfulIngredientSet) Len() int {
	return len(s.items)
}

// Contains 檢查食材是否有害
func (s HarmfulIngredientSet) Contains(ingredient string) bool {
	if len(s.items) == 0 {
		return false
	}
	_, ok := s.items[common.NormalizeIngredient(ingredient)]
	return ok
}

// Intersect 回傳 ingredients 中有害的項目（正規化、去重，保留原順序）
func (s HarmfulIngredientSet) Intersect(ingredients []string) []string {
	found := []string{}
	if len(s.items) == 0 {
		return found
	}
	seen := make(map[string]struct{})
	for _, ing := range ingredients {
		n := common.NormalizeIngredient(ing)
		if _, harmful := s.items[n]; !harmful {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		found = append(found, n)
	}
	return found
}

// List 排序後的食材清單
func (s HarmfulIngredientSet) List() []string {
	out := make([]string, 0, len(s.items))
	for ing := range s.items {
		out = append(out, ing)
	}
	sort.Strings(out)
	return out
}

// IngredientSource 提供整個目錄的食材清單
type IngredientSource interface {
	DistinctIngredients(ctx context.Context) ([]string, error)
}

// HarmfulIngredientResolver 詢問生成模型哪些食材不適合使用者的健康狀況
type HarmfulIngredientResolver struct {
	gen     Generator
	catalog IngredientSource
	cache   *cache.PipelineCache
	ttl     time.Duration
}

// NewHarmfulIngredientResolver 創建解析器；ttl 為結果快取時間
func NewHarmfulIngredientResolver(gen Generator, source IngredientSource, pc *cache.PipelineCache, ttl time.Duration) *HarmfulIngredientResolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HarmfulIngredientResolver{gen: gen, catalog: source, cache: pc, ttl: ttl}
}

// HarmfulCacheKey 條件正規化、去重、排序後以底線串接
func HarmfulCacheKey(conditions []string) string {
	return harmfulCachePrefix + strings.Join(normalizeConditions(conditions), "_")
}

// Resolve 解析有害食材；任何失敗都回傳空集合，讓健康過濾退化為不過濾
func (r *HarmfulIngredientResolver) Resolve(ctx context.Context, conditions []string) HarmfulIngredientSet {
	normalized := normalizeConditions(conditions)
	if len(normalized) == 0 {
		metrics.HarmfulResolutions.WithLabelValues("empty").Inc()
		return NewHarmfulIngredientSet(nil)
	}

	key := HarmfulCacheKey(normalized)
	var cached []string
	if r.cache.Get(ctx, key, &cached) {
		metrics.HarmfulResolutions.WithLabelValues("cached").Inc()
		return NewHarmfulIngredientSet(cached)
	}

	harmful, err := r.resolve(ctx, normalized)
	if err != nil {
		metrics.HarmfulResolutions.WithLabelValues("failed_open").Inc()
		common.LogWarn("有害食材解析失敗，健康過濾改為不過濾",
			zap.Strings("conditions", normalized),
			zap.Error(err),
		)
		return NewHarmfulIngredientSet(nil)
	}

	set := NewHarmfulIngredientSet(harmful)
	r.cache.Set(ctx, key, set.List(), r.ttl)
	metrics.HarmfulResolutions.WithLabelValues("resolved").Inc()
	common.LogDebug("有害食材已解析",
		zap.Strings("conditions", normalized),
		zap.Strings("harmful", set.List()),
	)
	return set
}

func (r *HarmfulIngredientResolver) resolve(ctx context.Context, conditions []string) ([]string, error) {
	universe, err := r.catalog.DistinctIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredient universe: %w", err)
	}

	raw, err := r.gen.Generate(ctx, BuildHarmfulPrompt(conditions, universe))
	if err != nil {
		return nil, err
	}

	var harmful []string
	if err := common.ParseJSON(common.StripCodeFence(raw), &harmful); err != nil {
		return nil, common.NewUpstreamError("harmful-ingredients", fmt.Errorf("invalid JSON array: %w", err))
	}
	return harmful, nil
}

// BuildHarmfulPrompt 要求模型只回傳 JSON 字串陣列
func BuildHarmfulPrompt(conditions, ingredients []string) string {
	return fmt.Sprintf(`Analyze the following health conditions: %s.
Identify which of these ingredients might be harmful: %s.
Return ONLY a JSON array of harmful ingredients, or an empty array if none are harmful.
Example: ["salt", "sugar"]
`, strings.Join(conditions, ", "), strings.Join(ingredients, ", "))
}

func normalizeConditions(conditions []string) []string {
	seen := make(map[string]struct{}, len(conditions))
	out := make([]string, 0, len(conditions))
	for _, c := range common.NormalizeIngredients(conditions) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
