package recommend

import (
	"sort"
	"strings"

	"cart-recommender/internal/core/catalog"
)

// RankCandidates 曾在此分類購買過的商品優先，同層內價格由低到高；完全相同者維持原順序
func RankCandidates(history []catalog.Order, category string, candidates []catalog.Product) []catalog.Product {
	purchased := make(map[string]struct{})
	for _, o := range history {
		if strings.EqualFold(strings.TrimSpace(o.Category), strings.TrimSpace(category)) {
			purchased[o.ProductID] = struct{}{}
		}
	}

	ranked := make([]catalog.Product, len(candidates))
	copy(ranked, candidates)

	affinity := func(p catalog.Product) int {
		if _, ok := purchased[p.ID]; ok {
			return 1
		}
		return 0
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := affinity(ranked[i]), affinity(ranked[j])
		if ai != aj {
			return ai > aj
		}
		return ranked[i].Price < ranked[j].Price
	})
	return ranked
}
