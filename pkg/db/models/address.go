package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Address is a saved shipping or billing destination.
type Address struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Line1     string          `gorm:"column:line1;not null"`
	Line2     *string         `gorm:"column:line2"`
	City      string          `gorm:"column:city;not null"`
	Parish    *string         `gorm:"column:parish"`
	Territory enums.Territory `gorm:"column:territory;type:text;not null"`
	Phone     *string         `gorm:"column:phone"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
