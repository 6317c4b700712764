package models

import (
	"time"

	"github.com/google/uuid"
)

// Shipment stores the carrier label purchased for a confirmed order.
type Shipment struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Carrier        string    `gorm:"column:carrier;not null"`
	TrackingNumber string    `gorm:"column:tracking_number;not null"`
	LabelURL       string    `gorm:"column:label_url;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
