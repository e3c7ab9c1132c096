package recommend

import (
	"math"
	"sort"

	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"
)

// HealthScore protein*2 - sugar*0.5 - sodium*0.01
func HealthScore(n catalog.Nutrition) float64 {
	return n.Protein*2 - n.Sugar*0.5 - n.Sodium*0.01
}

// FallbackPicks 依健康分數由高到低取前 topN 個，同分維持候選順序
func FallbackPicks(candidates []catalog.Product, topN int) []Recommendation {
	sorted := make([]catalog.Product, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return HealthScore(sorted[i].Nutrition) > HealthScore(sorted[j].Nutrition)
	})

	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	out := make([]Recommendation, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, Recommendation{Product: p, Reasoning: FallbackReasoning})
	}
	return out
}

// ComputeNutritionMetrics 計算推薦商品的健康指數與每元蛋白質
func ComputeNutritionMetrics(recs []Recommendation) []NutritionMetric {
	out := make([]NutritionMetric, 0, len(recs))
	for _, r := range recs {
		out = append(out, NutritionMetric{
			ID:          r.ID,
			HealthIndex: int(common.Round(HealthScore(r.Nutrition))),
			ValueScore:  valueScore(r.Nutrition.Protein, r.Price),
		})
	}
	return out
}

func valueScore(protein, price float64) float64 {
	score := common.Round2(protein / math.Max(price, 1))
	if score < 0 {
		return 0
	}
	return score
}
