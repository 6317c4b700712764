package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/api/middleware"
	"github.com/caribcell/caribcell-backend/api/responses"
	"github.com/caribcell/caribcell-backend/api/validators"
	"github.com/caribcell/caribcell-backend/internal/users"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

type addressRequest struct {
	Name      string  `json:"name" validate:"required"`
	Line1     string  `json:"line1" validate:"required"`
	Line2     *string `json:"line2,omitempty"`
	City      string  `json:"city" validate:"required"`
	Parish    *string `json:"parish,omitempty"`
	Territory string  `json:"territory" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

// CreateAddress saves a new destination for the authenticated customer.
func CreateAddress(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var body addressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		territory, err := enums.ParseTerritory(body.Territory)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported territory"))
			return
		}

		address, err := svc.AddAddress(r.Context(), users.AddressInput{
			UserID:    userID,
			Name:      body.Name,
			Line1:     body.Line1,
			Line2:     body.Line2,
			City:      body.City,
			Parish:    body.Parish,
			Territory: territory,
			Phone:     body.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, address)
	}
}

// ListAddresses returns the customer's saved destinations.
func ListAddresses(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		list, err := svc.ListAddresses(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
