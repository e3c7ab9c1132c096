package catalog

import (
	"context"
	"errors"
	"time"

	"cart-recommender/internal/pkg/common"

	"gorm.io/gorm"
)

type (
	// UserRepository 使用者資料存取
	UserRepository interface {
		FindByID(ctx context.Context, id string) (*User, error)
		Create(ctx context.Context, user *User) error
		RecordOrder(ctx context.Context, userID string, order Order) (*User, error)
	}

	userRepository struct {
		db  *gorm.DB
		now func() time.Time
	}
)

// NewUserRepository 創建使用者 repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, now: time.Now}
}

// FindByID 讀取使用者與依購買時間排序的歷史訂單
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Preload("PreviousOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchased_at ASC, row_id ASC")
		}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = common.GenerateUUID()
	}
	user.HealthConditions = common.NormalizeIngredients(user.HealthConditions)
	return r.db.WithContext(ctx).Omit("PreviousOrders").Create(user).Error
}

// RecordOrder 新增一筆購買紀錄，並重新計算平均訂單金額
func (r *userRepository) RecordOrder(ctx context.Context, userID string, order Order) (*User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NewNotFoundError("user", userID)
			}
			return err
		}

		order.UserID = userID
		if order.PurchasedAt.IsZero() {
			order.PurchasedAt = r.now().UTC()
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var prices []float64
		if err := tx.Model(&Order{}).Where("user_id = ?", userID).Pluck("price", &prices).Error; err != nil {
			return err
		}

		return tx.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"average_order_value": AverageOrderValue(prices),
			"last_order_value":    order.Price,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, userID)
}

// AverageOrderValue 計算平均訂單金額（四捨五入到兩位小數），沒有訂單時為 0
func AverageOrderValue(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var total float64
	for _, p := range prices {
		total += p
	}
	return common.Round2(total / float64(len(prices)))
}
