package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of order transitions.
// Rows are created once per transition and never mutated or deleted.
type OrderStatusHistory struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus  enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus    enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	Note        *string           `gorm:"column:note"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
