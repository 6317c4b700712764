package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Article is one physically trackable unit of inventory (a single handset
// with its own serial number). At most one active order may hold a claim on
// an article at a time.
type Article struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID     uuid.UUID           `gorm:"column:variant_id;type:uuid;not null;index"`
	ArticleNumber string              `gorm:"column:article_number;not null;uniqueIndex"`
	SerialNumber  *string             `gorm:"column:serial_number;uniqueIndex"`
	Status        enums.ArticleStatus `gorm:"column:status;type:text;not null;default:'in_stock'"`
	SoldAt        *time.Time          `gorm:"column:sold_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}
