package catalog

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Nutrition 營養成分（每份）
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
	Fat      float64 `json:"fat"`
}

// Product 商品；ID 為對外的穩定編號（p00000 格式），RowID 為資料庫主鍵
type Product struct {
	RowID           uint           `gorm:"primaryKey" json:"-"`
	ID              string         `gorm:"column:product_id;uniqueIndex;size:16;not null" json:"id"`
	Name            string         `gorm:"not null" json:"name"`
	Category        string         `gorm:"index;not null" json:"category"`
	Ingredients     pq.StringArray `gorm:"type:text[]" json:"ingredients"`
	Price           float64        `gorm:"not null" json:"price"`
	Nutrition       Nutrition      `gorm:"embedded;embeddedPrefix:nutrition_" json:"nutrition"`
	PopularityScore float64        `gorm:"default:0" json:"popularityScore"`
	CreatedAt       time.Time      `json:"-"`
	UpdatedAt       time.Time      `json:"-"`
}

// User 使用者與健康資料
type User struct {
	ID                 string         `gorm:"primaryKey;size:64" json:"id"`
	Name               string         `gorm:"not null" json:"name"`
	Age                int            `json:"age"`
	HealthConditions   pq.StringArray `gorm:"type:text[]" json:"healthConditions"`
	DietaryPreferences pq.StringArray `gorm:"type:text[]" json:"dietaryPreferences"`
	AverageOrderValue  float64        `gorm:"default:0" json:"averageOrderValue"`
	LastOrderValue     float64        `gorm:"default:0" json:"lastOrderValue"`
	PreviousOrders     []Order        `gorm:"foreignKey:UserID;references:ID" json:"previousOrders"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"-"`
}

// Order 歷史購買紀錄（購買當下的商品快照）
type Order struct {
	RowID       uint      `gorm:"primaryKey" json:"-"`
	UserID      string    `gorm:"index;size:64;not null" json:"-"`
	ProductID   string    `gorm:"size:16;not null" json:"productId"`
	Name        string    `json:"name"`
	Category    string    `gorm:"index" json:"category"`
	Price       float64   `json:"price"`
	Nutrition   Nutrition `gorm:"embedded;embeddedPrefix:nutrition_" json:"nutrition"`
	PurchasedAt time.Time `gorm:"index" json:"purchasedAt"`
}

// AutoMigrate 建立或更新資料表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &User{}, &Order{})
}
