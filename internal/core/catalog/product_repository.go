package catalog

import (
	"context"
	"errors"
	"strings"

	"cart-recommender/internal/pkg/common"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SearchFilter 商品搜尋條件
type SearchFilter struct {
	Query    string
	Category string
	MinPrice float64
	MaxPrice float64
	Limit    int
}

const defaultSearchLimit = 50

type (
	// ProductRepository 商品唯讀查詢
	ProductRepository interface {
		FindByID(ctx context.Context, id string) (*Product, error)
		FindByIDs(ctx context.Context, ids []string) ([]Product, error)
		FindByCategory(ctx context.Context, category string) ([]Product, error)
		DistinctIngredients(ctx context.Context) ([]string, error)
		Search(ctx context.Context, filter SearchFilter) ([]Product, error)
		ListByCategory(ctx context.Context, category string, limit, offset int) ([]Product, int64, error)
	}

	productRepository struct {
		db          *gorm.DB
		batchSize   int
		concurrency int
	}
)

// NewProductRepository 創建商品 repository；batchSize 與 concurrency 控制批次查詢
func NewProductRepository(db *gorm.DB, batchSize, concurrency int) ProductRepository {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &productRepository{db: db, batchSize: batchSize, concurrency: concurrency}
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).Where("product_id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("product", id)
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs 分批並行查詢，結果依輸入順序重組；不存在的 ID 直接略過
func (r *productRepository) FindByIDs(ctx context.Context, ids []string) ([]Product, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []Product{}, nil
	}

	batches := chunk(ids, r.batchSize)
	results := make([][]Product, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			var found []Product
			if err := r.db.WithContext(gctx).Where("product_id IN ?", batch).Find(&found).Error; err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return orderByIDs(ids, results), nil
}

func (r *productRepository) FindByCategory(ctx context.Context, category string) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(category))).
		Order("product_id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DistinctIngredients 回傳整個商品目錄中出現過的食材（小寫、去重、排序）
func (r *productRepository) DistinctIngredients(ctx context.Context) ([]string, error) {
	var ingredients []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT LOWER(TRIM(i)) AS ingredient FROM products, UNNEST(ingredients) AS i ORDER BY 1").
		Scan(&ingredients).Error
	if err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *productRepository) Search(ctx context.Context, filter SearchFilter) ([]Product, error) {
	query := r.db.WithContext(ctx).Model(&Product{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("name ILIKE ?", "%"+escapeLike(q)+"%")
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.MinPrice > 0 {
		query = query.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price <= ?", filter.MaxPrice)
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	var products []Product
	if err := query.Order("popularity_score DESC, product_id").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListByCategory(ctx context.Context, category string, limit, offset int) ([]Product, int64, error) {
	var products []Product
	var count int64

	// Session 讓同一個條件可以先 Count 再 Find
	query := r.db.WithContext(ctx).Model(&Product{}).
		Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(category))).
		Session(&gorm.Session{})

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("product_id").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

// chunk 將 ID 切成固定大小的批次
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

// orderByIDs 依 ids 順序重組批次結果
func orderByIDs(ids []string, batches [][]Product) []Product {
	byID := make(map[string]Product)
	for _, batch := range batches {
		for _, p := range batch {
			byID[p.ID] = p
		}
	}

	out := make([]Product, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
