package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/internal/inventory"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	"github.com/caribcell/caribcell-backend/pkg/logger"
	"github.com/caribcell/caribcell-backend/pkg/metrics"
	pkgstripe "github.com/caribcell/caribcell-backend/pkg/stripe"
)

const (
	flowConfirm = "confirm_payment"
	flowCancel  = "cancel_order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionVerifier interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripelib.CheckoutSession, error)
}

type authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, perm enums.Permission) error
}

// Service defines the order lifecycle operations.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*ConfirmPaymentResult, error)
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
	Get(ctx context.Context, actor access.Actor, orderID uuid.UUID) (*models.Order, error)
	ListMine(ctx context.Context, actor access.Actor, limit, offset int) ([]OrderSummary, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]OrderSummary, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   *inventory.Ledger
	payments sessionVerifier
	gate     authorizer
	metrics  *metrics.OrderFlowMetrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with its required collaborators.
func NewService(repo Repository, tx txRunner, ledger *inventory.Ledger, payments sessionVerifier, gate authorizer, flowMetrics *metrics.OrderFlowMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment session verifier required")
	}
	if gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		payments: payments,
		gate:     gate,
		metrics:  flowMetrics,
		logger:   logg,
		now:      time.Now,
	}, nil
}

// authorizeOrderAccess lets the order's owner through; every other actor must
// clear the gate for the matching permission, so a staff token is re-checked
// against the account's effective roles and ACTIVE status before any write.
func (s *service) authorizeOrderAccess(ctx context.Context, actor access.Actor, order *models.Order, perm enums.Permission) error {
	if order.UserID == actor.UserID {
		return nil
	}
	return s.gate.Authorize(ctx, actor, perm)
}

// ConfirmPayment settles an order against its hosted checkout session. The
// session is verified with the provider before any write; the order row is
// re-read inside the transaction so a concurrent confirmation or
// cancellation is always observed before counters move.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*ConfirmPaymentResult, error) {
	if input.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	started := s.now()
	result, err := s.confirmPayment(ctx, input)
	s.metrics.ObserveDuration(flowConfirm, s.now().Sub(started))
	switch {
	case err != nil:
		s.metrics.IncFailed(flowConfirm)
	case result.Replayed:
		s.metrics.IncReplayed(flowConfirm)
	default:
		s.metrics.IncCompleted(flowConfirm)
	}
	return result, err
}

func (s *service) confirmPayment(ctx context.Context, input ConfirmPaymentInput) (*ConfirmPaymentResult, error) {
	session, err := s.payments.GetCheckoutSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	var result ConfirmPaymentResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByCheckoutSession(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.OrderID != uuid.Nil && order.ID != input.OrderID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order does not match session")
		}
		if err := s.authorizeOrderAccess(ctx, input.Actor, order, enums.PermissionOrdersConfirm); err != nil {
			return err
		}

		result.OrderID = order.ID
		result.OrderNumber = order.OrderNumber

		if order.PaymentStatus == enums.PaymentStatusSucceeded {
			result.Status = order.Status
			result.PaymentStatus = order.PaymentStatus
			result.Replayed = true
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeConflict, "order payment was cancelled")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed in current state")
		}

		if !pkgstripe.SessionPaid(session) {
			return pkgerrors.New(pkgerrors.CodePaymentUnconfirmed, "checkout session is not paid").
				WithDetails(map[string]any{"session_id": input.SessionID})
		}

		now := s.now().UTC()

		var reference *string
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			reference = &session.PaymentIntent.ID
		}
		payment := &models.Payment{
			OrderID:           order.ID,
			Amount:            order.TotalAmount,
			Currency:          order.Currency,
			Status:            enums.PaymentStatusSucceeded,
			ProviderSessionID: &input.SessionID,
			ProviderReference: reference,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		result.PaymentID = payment.ID

		soldByVariant := make(map[uuid.UUID]int)
		var soldArticles []uuid.UUID
		for _, item := range order.Items {
			if item.ArticleID == nil {
				result.UnallocatedItems++
				continue
			}
			soldArticles = append(soldArticles, *item.ArticleID)
			soldByVariant[item.VariantID] += item.Qty
		}

		if err := s.ledger.MarkArticles(ctx, tx, soldArticles, enums.ArticleStatusReserved, enums.ArticleStatusSold); err != nil {
			return err
		}
		for variantID, qty := range soldByVariant {
			if err := s.ledger.ReservedToSold(ctx, tx, variantID, qty); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"status":         enums.OrderStatusConfirmed,
			"payment_status": enums.PaymentStatusSucceeded,
			"paid_at":        now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		entry := &models.OrderStatusHistory{
			OrderID:     order.ID,
			FromStatus:  order.Status,
			ToStatus:    enums.OrderStatusConfirmed,
			ActorUserID: &input.Actor.UserID,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		result.Status = enums.OrderStatusConfirmed
		result.PaymentStatus = enums.PaymentStatusSucceeded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.UnallocatedItems > 0 && s.logger != nil {
		warnCtx := s.logger.WithFields(ctx, map[string]any{
			"order_id":          result.OrderID.String(),
			"unallocated_items": result.UnallocatedItems,
		})
		s.logger.Warn(warnCtx, "order confirmed with unallocated items")
	}
	return &result, nil
}

// Cancel voids a pending order, returning its reserved stock to the
// available pool. Cancelling an already cancelled order is a no-op;
// cancelling a paid order is refused.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	started := s.now()
	result, err := s.cancel(ctx, input)
	s.metrics.ObserveDuration(flowCancel, s.now().Sub(started))
	switch {
	case err != nil:
		s.metrics.IncFailed(flowCancel)
	case result.Replayed:
		s.metrics.IncReplayed(flowCancel)
	default:
		s.metrics.IncCompleted(flowCancel)
	}
	return result, err
}

func (s *service) cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	var result CancelResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := s.authorizeOrderAccess(ctx, input.Actor, order, enums.PermissionOrdersCancel); err != nil {
			return err
		}

		result.OrderID = order.ID
		result.OrderNumber = order.OrderNumber

		if order.Status == enums.OrderStatusCancelled {
			result.Status = order.Status
			result.PaymentStatus = order.PaymentStatus
			result.Replayed = true
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusSucceeded {
			return pkgerrors.New(pkgerrors.CodeConflict, "order has a settled payment")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled in current state")
		}

		now := s.now().UTC()

		reservedByVariant := make(map[uuid.UUID]int)
		var reservedArticles []uuid.UUID
		for _, item := range order.Items {
			if item.ArticleID == nil {
				continue
			}
			reservedArticles = append(reservedArticles, *item.ArticleID)
			reservedByVariant[item.VariantID] += item.Qty
		}
		result.ReleasedArticles = len(reservedArticles)

		if err := s.ledger.MarkArticles(ctx, tx, reservedArticles, enums.ArticleStatusReserved, enums.ArticleStatusInStock); err != nil {
			return err
		}
		for variantID, qty := range reservedByVariant {
			if err := s.ledger.ReservedToAvailable(ctx, tx, variantID, qty); err != nil {
				return err
			}
		}

		metadata, _ := json.Marshal(map[string]string{"reason": input.Reason})
		payment := &models.Payment{
			OrderID:           order.ID,
			Amount:            order.TotalAmount,
			Currency:          order.Currency,
			Status:            enums.PaymentStatusCancelled,
			ProviderSessionID: order.CheckoutSessionID,
			Metadata:          metadata,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cancelled payment")
		}

		updates := map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusCancelled,
			"cancelled_at":   now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		note := input.Reason
		entry := &models.OrderStatusHistory{
			OrderID:     order.ID,
			FromStatus:  order.Status,
			ToStatus:    enums.OrderStatusCancelled,
			ActorUserID: &input.Actor.UserID,
		}
		if note != "" {
			entry.Note = &note
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		result.Status = enums.OrderStatusCancelled
		result.PaymentStatus = enums.PaymentStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.authorizeOrderAccess(ctx, actor, order, enums.PermissionOrdersRead); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListMine(ctx context.Context, actor access.Actor, limit, offset int) ([]OrderSummary, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	summaries := make([]OrderSummary, 0, len(list))
	for _, order := range list {
		summaries = append(summaries, Summarize(order))
	}
	return summaries, nil
}

// List is the back-office listing; permission checks happen at the route.
func (s *service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]OrderSummary, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if filter.Territory != "" && !filter.Territory.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown territory")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	summaries := make([]OrderSummary, 0, len(list))
	for _, order := range list {
		summaries = append(summaries, Summarize(order))
	}
	return summaries, nil
}
