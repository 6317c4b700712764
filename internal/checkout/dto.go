package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// BeginInput starts a checkout from the customer's open cart.
type BeginInput struct {
	UserID            uuid.UUID
	Territory         enums.Territory
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
}

// BeginResult returns the created pending order and the hosted payment URL
// the customer is redirected to.
type BeginResult struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SessionID   string          `json:"session_id"`
	PaymentURL  string          `json:"payment_url"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    enums.Currency  `json:"currency"`
}
