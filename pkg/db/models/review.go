package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Review is a customer product review awaiting or past moderation.
type Review struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Rating         int                `gorm:"column:rating;not null"`
	Title          *string            `gorm:"column:title"`
	Body           string             `gorm:"column:body;not null"`
	Status         enums.ReviewStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ModeratedBy    *uuid.UUID         `gorm:"column:moderated_by;type:uuid"`
	ModeratedAt    *time.Time         `gorm:"column:moderated_at"`
	ModerationNote *string            `gorm:"column:moderation_note"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
