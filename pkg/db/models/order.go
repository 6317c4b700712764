package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Order represents one customer purchase attempt and its lifecycle status.
// Payment status transitions are monotonic: once succeeded or cancelled the
// order is never transitioned back to pending.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Territory         enums.Territory      `gorm:"column:territory;type:text;not null"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	Subtotal          decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingAmount    decimal.Decimal      `gorm:"column:shipping_amount;type:numeric(12,2);not null"`
	TaxAmount         decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalAmount       decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddressID *uuid.UUID           `gorm:"column:shipping_address_id;type:uuid"`
	BillingAddressID  *uuid.UUID           `gorm:"column:billing_address_id;type:uuid"`
	CheckoutSessionID *string              `gorm:"column:checkout_session_id;index"`
	OrderedAt         time.Time            `gorm:"column:ordered_at;not null"`
	PaidAt            *time.Time           `gorm:"column:paid_at"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	Items             []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments          []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History           []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
