package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Payment is an immutable record of one settlement attempt against an order.
// A cancellation creates a new cancelled Payment row rather than mutating a
// prior one.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	ProviderSessionID *string             `gorm:"column:provider_session_id;index"`
	ProviderReference *string             `gorm:"column:provider_reference"`
	Metadata          json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
}
