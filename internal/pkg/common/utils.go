package common

import (
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Round 四捨五入到整數（0.5 一律進位）
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Round2 四捨五入到小數點後兩位
func Round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

// NormalizeIngredient 去除前後空白、轉小寫並移除變音符號
func NormalizeIngredient(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	// transform.Chain 帶狀態，不可共用
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripper, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeIngredients 正規化食材清單，移除空字串
func NormalizeIngredients(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if v := NormalizeIngredient(n); v != "" {
			out = append(out, v)
		}
	}
	return out
}
