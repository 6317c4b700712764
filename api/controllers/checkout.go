package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/api/middleware"
	"github.com/caribcell/caribcell-backend/api/responses"
	"github.com/caribcell/caribcell-backend/api/validators"
	"github.com/caribcell/caribcell-backend/internal/checkout"
	"github.com/caribcell/caribcell-backend/internal/orders"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

type beginCheckoutRequest struct {
	ShippingAddressID string  `json:"shipping_address_id" validate:"required,uuid"`
	BillingAddressID  *string `json:"billing_address_id,omitempty"`
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	OrderID   string `json:"order_id,omitempty"`
}

// BeginCheckout turns the open cart into a pending order with a hosted
// payment session.
func BeginCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var body beginCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shippingID, err := uuid.Parse(body.ShippingAddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping address id"))
			return
		}
		var billingID *uuid.UUID
		if body.BillingAddressID != nil {
			parsed, err := uuid.Parse(*body.BillingAddressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing address id"))
				return
			}
			billingID = &parsed
		}

		result, err := svc.Begin(r.Context(), checkout.BeginInput{
			UserID:            userID,
			Territory:         enums.Territory(middleware.TerritoryFromContext(r.Context())),
			ShippingAddressID: shippingID,
			BillingAddressID:  billingID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConfirmPayment settles the order behind a hosted checkout session.
func ConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var orderID uuid.UUID
		if body.OrderID != "" {
			parsed, err := uuid.Parse(body.OrderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
				return
			}
			orderID = parsed
		}

		result, err := svc.ConfirmPayment(r.Context(), orders.ConfirmPaymentInput{
			SessionID: body.SessionID,
			OrderID:   orderID,
			Actor:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
