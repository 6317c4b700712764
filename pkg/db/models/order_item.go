package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem captures the snapshot of one line within an order. Descriptive
// fields are copied from the variant at order time and never updated when the
// catalog entry changes. ArticleID is nil until a physical unit is allocated.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID  uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	ArticleID  *uuid.UUID      `gorm:"column:article_id;type:uuid;index"`
	Name       string          `gorm:"column:name;not null"`
	Brand      string          `gorm:"column:brand;not null"`
	Storage    string          `gorm:"column:storage;not null"`
	Color      string          `gorm:"column:color;not null"`
	Qty        int             `gorm:"column:qty;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
