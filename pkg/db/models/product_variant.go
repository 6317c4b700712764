package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// ProductVariant is a sellable SKU (model + storage + color) with aggregate
// stock counters. The three counters only move in paired adjustments issued by
// the inventory ledger; their sum always equals the count of non-deleted
// articles under the variant.
type ProductVariant struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	SKU            string          `gorm:"column:sku;not null;uniqueIndex"`
	Storage        string          `gorm:"column:storage;not null"`
	Color          string          `gorm:"column:color;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency       enums.Currency  `gorm:"column:currency;type:text;not null;default:'USD'"`
	AvailableStock int             `gorm:"column:available_stock;not null;default:0"`
	ReservedStock  int             `gorm:"column:reserved_stock;not null;default:0"`
	SoldStock      int             `gorm:"column:sold_stock;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	Articles       []Article       `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
