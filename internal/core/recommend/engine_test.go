package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	users    *fakeUsers
	products *fakeProducts
	gen      *fakeGenerator
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	users := &fakeUsers{users: map[string]*catalog.User{
		"u1": {
			ID:                "u1",
			HealthConditions:  []string{"hypertension"},
			AverageOrderValue: 10,
			PreviousOrders:    []catalog.Order{{ProductID: "p00005", Category: "dairy", Price: 12}},
		},
	}}
	products := &fakeProducts{products: []catalog.Product{
		product("p00001", "Dairy", 9, catalog.Nutrition{Protein: 3, Sugar: 12, Sodium: 100}, "milk"),
		product("p00002", "dairy", 8, catalog.Nutrition{Protein: 10, Sugar: 4, Sodium: 40}, "milk", "cultures"),
		product("p00003", "dairy", 11, catalog.Nutrition{Protein: 7, Sugar: 2, Sodium: 300}, "milk", "salt"),
		product("p00004", "dairy", 13.01, catalog.Nutrition{Protein: 20}, "milk"),
		product("p00005", "dairy", 12, catalog.Nutrition{Protein: 6, Sugar: 1, Sodium: 20}, "milk", "oats"),
		product("p00006", "dairy", 7, catalog.Nutrition{Protein: 1, Sugar: 20, Sodium: 10}, "milk", "sugar"),
		product("p00010", "bakery", 5, catalog.Nutrition{}, "flour"),
	}}
	gen := &fakeGenerator{harmful: `["salt","sugar"]`}
	pc, _ := newTestCache()
	resolver := NewHarmfulIngredientResolver(gen, products, pc, time.Hour)
	engine := NewEngine(users, products, resolver, gen, pc, Options{ResultTTL: 30 * time.Minute, TopN: 3})
	engine.now = fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}.Now

	return &engineFixture{users: users, products: products, gen: gen, engine: engine}
}

func dairyRequest() Request {
	return Request{
		UserID:    "u1",
		CartItems: []CartItem{{ID: "p00001", Category: "dairy", Ingredients: []string{"milk"}}},
	}
}

func resultIDs(res *Result) []string {
	ids := make([]string, len(res.Recommendations))
	for i, r := range res.Recommendations {
		ids[i] = r.ID
	}
	return ids
}

func TestRecommendUsesModelPicks(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.ranking = `[{"id":"p00002","name":"Yogurt","price":8,"sodium":"40mg","sugar":"4g","reasoning":"High protein"},
		{"id":"p00003","name":"Salty","price":11,"sodium":"300mg","sugar":"2g","reasoning":"filtered out earlier"},
		{"id":"p00005","name":"Oat milk","price":12,"sodium":"20mg","sugar":"1g","reasoning":"You bought it before"}]`

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, []string{"p00002", "p00005"}, resultIDs(res))
	assert.Equal(t, "High protein", res.Recommendations[0].Reasoning)
	require.Len(t, res.Metrics, 2)
	assert.Equal(t, "p00002", res.Metrics[0].ID)
	assert.Equal(t, 18, res.Metrics[0].HealthIndex)
	assert.Equal(t, 1.25, res.Metrics[0].ValueScore)

	require.NotNil(t, res.CurrentItemStatus)
	assert.Equal(t, StatusHealthy, res.CurrentItemStatus.Status)
	assert.Equal(t, "This item meets your health requirements", res.CurrentItemStatus.Message)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, res.Timestamp.Add(30*time.Minute), *res.ExpiresAt)

	// 排序提示只包含健康且在預算內的候選，已購買的 p00005 排第一
	rankingPrompt := f.gen.prompts[len(f.gen.prompts)-1]
	assert.Contains(t, rankingPrompt, "- p00005")
	assert.NotContains(t, rankingPrompt, "p00003")
	assert.NotContains(t, rankingPrompt, "p00004")
	assert.NotContains(t, rankingPrompt, "p00006")
	assert.Less(t, strings.Index(rankingPrompt, "- p00005"), strings.Index(rankingPrompt, "- p00002"))
}

func TestRecommendIsIdempotentWithinTTL(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.ranking = `[{"id":"p00002","name":"Yogurt","price":8,"sodium":"40mg","sugar":"4g","reasoning":"High protein"}]`
	ctx := context.Background()

	first, err := f.engine.Recommend(ctx, dairyRequest())
	require.NoError(t, err)
	second, err := f.engine.Recommend(ctx, dairyRequest())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, 1, f.gen.rankingCalls)
	assert.Equal(t, 1, f.gen.harmfulCalls)
}

func TestRecommendFallsBackOnTransportError(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.rankingErr = common.NewUpstreamError("stub", errors.New("connection refused"))

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, res.Source)
	// 候選分數：p00005 11.3, p00002 17.6, p00001 -1
	assert.Equal(t, []string{"p00002", "p00005", "p00001"}, resultIDs(res))
	for _, r := range res.Recommendations {
		assert.Equal(t, FallbackReasoning, r.Reasoning)
	}
	assert.Len(t, res.Metrics, 3)
	assert.Empty(t, res.Error)
}

func TestRecommendFallsBackOnSchemaRejection(t *testing.T) {
	f := newEngineFixture(t)
	// 第二筆 sugar 單位錯誤，整批拒絕
	f.gen.ranking = `[{"id":"p00005","name":"Oat milk","price":12,"sodium":"20mg","sugar":"1g","reasoning":"ok"},
		{"id":"p00002","name":"Yogurt","price":8,"sodium":"40mg","sugar":"4mg","reasoning":"ok"}]`

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, []string{"p00002", "p00005", "p00001"}, resultIDs(res))
}

func TestRecommendFallsBackWhenNoPickMatches(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.ranking = `[{"id":"p99999","name":"Ghost","price":8,"sodium":"40mg","sugar":"4g","reasoning":"ok"}]`

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Recommendations, 3)
}

func TestRecommendRejectsInvalidRequestBeforeDataAccess(t *testing.T) {
	cases := map[string]Request{
		"empty cart":       {UserID: "u1", CartItems: []CartItem{}},
		"missing category": {UserID: "u1", CartItems: []CartItem{{ID: "p00001", Ingredients: []string{}}}},
		"missing id":       {UserID: "u1", CartItems: []CartItem{{Category: "dairy", Ingredients: []string{}}}},
		"nil ingredients":  {UserID: "u1", CartItems: []CartItem{{ID: "p00001", Category: "dairy"}}},
		"missing user":     {CartItems: []CartItem{{ID: "p00001", Category: "dairy", Ingredients: []string{}}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			f := newEngineFixture(t)
			res, err := f.engine.Recommend(context.Background(), req)

			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
			require.NotNil(t, res)
			assert.Empty(t, res.Recommendations)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, int32(0), f.users.calls.Load())
			assert.Equal(t, int32(0), f.products.calls.Load())
			assert.Empty(t, f.gen.prompts)
		})
	}
}

func TestRecommendUnknownUserOrProduct(t *testing.T) {
	f := newEngineFixture(t)
	req := dairyRequest()
	req.UserID = "ghost"

	res, err := f.engine.Recommend(context.Background(), req)
	assert.True(t, common.IsNotFoundError(err))
	assert.Empty(t, res.Recommendations)
	assert.Contains(t, res.Error, "user not found")

	req = dairyRequest()
	req.CartItems[0].ID = "p77777"
	res, err = f.engine.Recommend(context.Background(), req)
	assert.True(t, common.IsNotFoundError(err))
	assert.Contains(t, res.Error, "product not found")
}

func TestRecommendEarlyTerminationKeepsCurrentItemStatus(t *testing.T) {
	f := newEngineFixture(t)
	f.users.users["u1"].AverageOrderValue = 100

	req := dairyRequest()
	req.CartItems[0] = CartItem{ID: "p00006", Category: "dairy", Ingredients: []string{"milk", "sugar"}}

	res, err := f.engine.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, ExplanationNoBudgetProducts, res.Explanation)

	require.NotNil(t, res.CurrentItemStatus)
	assert.Equal(t, StatusHarmful, res.CurrentItemStatus.Status)
	assert.Equal(t, []string{"sugar"}, res.CurrentItemStatus.HarmfulIngredients)
	assert.Equal(t, "Contains ingredients (sugar) that may worsen hypertension", res.CurrentItemStatus.Message)
	assert.Equal(t, 0, f.gen.rankingCalls)
}

func TestRecommendNewUserGetsNoBudgetMatches(t *testing.T) {
	f := newEngineFixture(t)
	f.users.users["u1"].AverageOrderValue = 0

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, ExplanationNoBudgetProducts, res.Explanation)
}

func TestRecommendNoHealthyProducts(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.harmful = `["milk","flour"]`

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)
	assert.Equal(t, ExplanationNoHealthyProducts, res.Explanation)
	assert.Equal(t, StatusHarmful, res.CurrentItemStatus.Status)
}

func TestRecommendEarlyTerminationIsNotCached(t *testing.T) {
	f := newEngineFixture(t)
	f.users.users["u1"].AverageOrderValue = 0
	ctx := context.Background()

	_, err := f.engine.Recommend(ctx, dairyRequest())
	require.NoError(t, err)

	f.users.users["u1"].AverageOrderValue = 10
	f.gen.ranking = `[{"id":"p00002","name":"Yogurt","price":8,"sodium":"40mg","sugar":"4g","reasoning":"High protein"}]`
	res, err := f.engine.Recommend(ctx, dairyRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"p00002"}, resultIDs(res))
}

func TestRecommendResolverFailureDisablesHealthFilter(t *testing.T) {
	f := newEngineFixture(t)
	f.gen.harmful = "I am not sure"
	f.gen.rankingErr = errors.New("down")

	res, err := f.engine.Recommend(context.Background(), dairyRequest())
	require.NoError(t, err)
	// p00003 含鹽但解析失敗時不過濾；分數 14-1-3=10
	assert.Contains(t, resultIDs(res), "p00003")
	assert.Equal(t, StatusHealthy, res.CurrentItemStatus.Status)
}

func TestResultCacheKey(t *testing.T) {
	assert.Equal(t, "recs:u1:dairy:p00001", ResultCacheKey("u1", "dairy", "p00001"))
}
