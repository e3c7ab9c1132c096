package recommend

import (
	"fmt"
	"strings"

	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"
)

// RankedPick 模型回傳的單筆推薦；所有欄位都必須通過驗證
type RankedPick struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
	Sodium    string  `json:"sodium" validate:"required,mgamount"`
	Sugar     string  `json:"sugar" validate:"required,gamount"`
	Reasoning string  `json:"reasoning" validate:"required"`
}

// BuildRankingPrompt 列出候選商品並要求模型挑選 topN 個，只回傳 JSON 陣列
func BuildRankingPrompt(user *catalog.User, candidates []catalog.Product, category string, topN int) string {
	conditions := "None"
	if len(user.HealthConditions) > 0 {
		conditions = strings.Join(user.HealthConditions, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User has the following health conditions: %s.\n", conditions)
	fmt.Fprintf(&sb, "Their average budget is around $%.2f.\n\n", user.AverageOrderValue)
	fmt.Fprintf(&sb, "Please analyze the following product candidates from the category %q and select the top %d most suitable products for the user's health profile and budget.\n\n", category, topN)
	sb.WriteString(`Return ONLY a JSON array with this structure:
[
  {
    "id": "p02527",
    "name": "Organic Milk",
    "price": 6.83,
    "sodium": "11mg",
    "sugar": "12.8g",
    "reasoning": "Low sodium and budget-friendly, ideal for hypertension."
  }
]

Products to evaluate:
`)
	for _, p := range candidates {
		name := p.Name
		if name == "" {
			name = "Unnamed"
		}
		fmt.Fprintf(&sb, "- %s - %s: $%s, sodium %smg, sugar %sg\n",
			p.ID, name, formatNumber(p.Price), formatNumber(p.Nutrition.Sodium), formatNumber(p.Nutrition.Sugar))
	}
	return sb.String()
}

// ParseRankingResponse 擷取第一個 '[' 到最後一個 ']'，並逐筆嚴格驗證；任何一筆失敗即整批拒絕
func ParseRankingResponse(raw string) ([]RankedPick, error) {
	body, err := common.ExtractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var picks []RankedPick
	if err := common.ParseJSON(body, &picks); err != nil {
		return nil, fmt.Errorf("invalid ranking JSON: %w", err)
	}

	for i := range picks {
		if err := common.ValidateStruct(&picks[i]); err != nil {
			return nil, fmt.Errorf("entry %d rejected: %w", i, err)
		}
	}
	return picks, nil
}

// MapPicks 依模型挑選順序對回候選商品；重複或不在候選中的 ID 直接略過，最多 topN 筆
func MapPicks(picks []RankedPick, candidates []catalog.Product, topN int) []Recommendation {
	byID := make(map[string]catalog.Product, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	out := make([]Recommendation, 0, topN)
	seen := make(map[string]struct{}, len(picks))
	for _, pick := range picks {
		if len(out) == topN {
			break
		}
		product, ok := byID[strings.TrimSpace(pick.ID)]
		if !ok {
			continue
		}
		if _, dup := seen[product.ID]; dup {
			continue
		}
		seen[product.ID] = struct{}{}
		out = append(out, Recommendation{Product: product, Reasoning: pick.Reasoning})
	}
	return out
}

// formatNumber 去除多餘的小數零（6.50 -> 6.5, 11.00 -> 11）
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
