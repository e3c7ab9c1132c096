package recommend

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cart-recommender/internal/core/cache"
	"cart-recommender/internal/core/catalog"
	"cart-recommender/internal/pkg/common"

	"github.com/lib/pq"
)

type fakeUsers struct {
	calls atomic.Int32
	users map[string]*catalog.User
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*catalog.User, error) {
	f.calls.Add(1)
	u, ok := f.users[id]
	if !ok {
		return nil, common.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

type fakeProducts struct {
	calls    atomic.Int32
	products []catalog.Product
}

func (f *fakeProducts) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	f.calls.Add(1)
	for _, p := range f.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, common.NewNotFoundError("product", id)
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	f.calls.Add(1)
	var out []catalog.Product
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeProducts) FindByCategory(_ context.Context, category string) ([]catalog.Product, error) {
	f.calls.Add(1)
	var out []catalog.Product
	for _, p := range f.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) DistinctIngredients(context.Context) ([]string, error) {
	f.calls.Add(1)
	seen := map[string]bool{}
	var out []string
	for _, p := range f.products {
		for _, ing := range p.Ingredients {
			n := strings.ToLower(ing)
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// fakeGenerator 依提示詞類型回傳不同的答案
type fakeGenerator struct {
	mu           sync.Mutex
	harmful      string
	harmfulErr   error
	ranking      string
	rankingErr   error
	harmfulCalls int
	rankingCalls int
	prompts      []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if strings.HasPrefix(prompt, "Analyze the following health conditions") {
		g.harmfulCalls++
		return g.harmful, g.harmfulErr
	}
	g.rankingCalls++
	return g.ranking, g.rankingErr
}

func product(id, category string, price float64, n catalog.Nutrition, ingredients ...string) catalog.Product {
	return catalog.Product{
		ID:          id,
		Name:        "Product " + id,
		Category:    category,
		Price:       price,
		Nutrition:   n,
		Ingredients: pq.StringArray(ingredients),
	}
}

func newTestCache() (*cache.PipelineCache, *cache.MemoryStore) {
	store := cache.NewMemoryStore(100)
	return cache.NewPipelineCache(store, "test"), store
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
