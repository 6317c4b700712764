package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/internal/orders"
	"github.com/caribcell/caribcell-backend/pkg/carrier"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type labelPurchaser interface {
	PurchaseLabel(ctx context.Context, req carrier.LabelRequest) (*carrier.Label, error)
}

// ShipInput dispatches a confirmed order.
type ShipInput struct {
	OrderID uuid.UUID
	Actor   access.Actor
}

// ShipResult reports the purchased label.
type ShipResult struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	LabelURL       string    `json:"label_url"`
}

// Service dispatches confirmed orders through the carrier.
type Service interface {
	Ship(ctx context.Context, input ShipInput) (*ShipResult, error)
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	tx        txRunner
	carrier   labelPurchaser
	now       func() time.Time
}

// NewService builds the shipping service.
func NewService(repo Repository, orderRepo orders.Repository, tx txRunner, labelClient labelPurchaser) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if labelClient == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	return &service{
		repo:      repo,
		orderRepo: orderRepo,
		tx:        tx,
		carrier:   labelClient,
		now:       time.Now,
	}, nil
}

// Ship purchases a label for a confirmed order and moves it to shipped. The
// carrier call runs before the transaction; a duplicate ship attempt is
// caught by the shipment's unique order constraint and the status check.
func (s *service) Ship(ctx context.Context, input ShipInput) (*ShipResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed orders can be shipped")
	}
	if order.ShippingAddressID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no shipping address")
	}

	address, err := s.repo.FindAddress(ctx, *order.ShippingAddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}

	labelReq := carrier.LabelRequest{
		OrderNumber: order.OrderNumber,
		Name:        address.Name,
		Line1:       address.Line1,
		City:        address.City,
		Territory:   address.Territory.String(),
	}
	if address.Line2 != nil {
		labelReq.Line2 = *address.Line2
	}
	if address.Phone != nil {
		labelReq.Phone = *address.Phone
	}

	label, err := s.carrier.PurchaseLabel(ctx, labelReq)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		current, err := orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed during dispatch")
		}

		shipment := &models.Shipment{
			OrderID:        order.ID,
			Carrier:        label.Carrier,
			TrackingNumber: label.TrackingNumber,
			LabelURL:       label.LabelURL,
		}
		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		updates := map[string]any{
			"status":     enums.OrderStatusShipped,
			"shipped_at": now,
		}
		if err := orderRepo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		entry := &models.OrderStatusHistory{
			OrderID:     order.ID,
			FromStatus:  enums.OrderStatusConfirmed,
			ToStatus:    enums.OrderStatusShipped,
			ActorUserID: &input.Actor.UserID,
		}
		return orderRepo.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &ShipResult{
		OrderID:        order.ID,
		TrackingNumber: label.TrackingNumber,
		LabelURL:       label.LabelURL,
	}, nil
}
