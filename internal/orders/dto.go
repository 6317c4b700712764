package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// ConfirmPaymentInput identifies the checkout session being settled. OrderID
// is optional; when present the order resolved from the session must match.
type ConfirmPaymentInput struct {
	SessionID string
	OrderID   uuid.UUID
	Actor     access.Actor
}

// ConfirmPaymentResult reports the outcome of a confirmation attempt.
// Replayed is true when the order had already been confirmed and the call
// changed nothing.
type ConfirmPaymentResult struct {
	OrderID          uuid.UUID           `json:"order_id"`
	OrderNumber      string              `json:"order_number"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentID        uuid.UUID           `json:"payment_id"`
	Replayed         bool                `json:"already_processed"`
	UnallocatedItems int                 `json:"unallocated_items"`
}

// CancelInput identifies the order being cancelled and why.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   access.Actor
	Reason  string
}

// CancelResult reports the outcome of a cancellation attempt. Replayed is
// true when the order was already cancelled.
type CancelResult struct {
	OrderID          uuid.UUID           `json:"order_id"`
	OrderNumber      string              `json:"order_number"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	Replayed         bool                `json:"already_processed"`
	ReleasedArticles int                 `json:"released_articles"`
}

// ListFilter narrows the back-office order listing. Zero values match
// everything.
type ListFilter struct {
	Status    enums.OrderStatus
	Territory enums.Territory
	UserID    uuid.UUID
}

// OrderSummary is the listing projection returned to customers and staff.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Currency      enums.Currency      `json:"currency"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	ItemCount     int                 `json:"item_count"`
	OrderedAt     time.Time           `json:"ordered_at"`
}
