package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/cart"
	"github.com/caribcell/caribcell-backend/internal/catalog"
	"github.com/caribcell/caribcell-backend/internal/inventory"
	"github.com/caribcell/caribcell-backend/internal/orders"
	"github.com/caribcell/caribcell-backend/pkg/config"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	pkgstripe "github.com/caribcell/caribcell-backend/pkg/stripe"
)

// Flat shipping charged per order until carrier-quoted rates land.
var shippingFlat = decimal.NewFromInt(10)

// Consumption tax (GCT/VAT) applied to the merchandise subtotal.
var taxRates = map[enums.Territory]decimal.Decimal{
	enums.TerritoryJamaica:  decimal.RequireFromString("0.15"),
	enums.TerritoryTrinidad: decimal.RequireFromString("0.125"),
	enums.TerritoryBarbados: decimal.RequireFromString("0.175"),
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, reference string, lines []pkgstripe.CheckoutLine, successURL, cancelURL string) (*stripelib.CheckoutSession, error)
}

// Service turns an open cart into a pending order with reserved stock.
type Service interface {
	Begin(ctx context.Context, input BeginInput) (*BeginResult, error)
}

type service struct {
	cartRepo    cart.Repository
	catalogRepo catalog.Repository
	orderRepo   orders.Repository
	ledger      *inventory.Ledger
	tx          txRunner
	payments    sessionCreator
	cfg         config.CheckoutConfig
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(cartRepo cart.Repository, catalogRepo catalog.Repository, orderRepo orders.Repository, ledger *inventory.Ledger, tx txRunner, payments sessionCreator, cfg config.CheckoutConfig) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment session creator required")
	}
	return &service{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		ledger:      ledger,
		tx:          tx,
		payments:    payments,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

// Begin reserves stock for every cart line, creates the pending order and
// opens the hosted payment session. Reservation and order creation commit
// together; the session id is attached to the order after the provider call
// succeeds so an unpaid session can always be traced back to its order.
func (s *service) Begin(ctx context.Context, input BeginInput) (*BeginResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ShippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if !input.Territory.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported territory")
	}

	var (
		order *models.Order
		lines []pkgstripe.CheckoutLine
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		openCart, err := cartRepo.FindOpenByUser(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(openCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		now := s.now().UTC()
		subtotal := decimal.Zero
		currency := enums.Currency("")

		var orderItems []models.OrderItem
		for _, line := range openCart.Items {
			variant, err := catalogRepo.FindVariantByID(ctx, line.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "variant no longer listed")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
			}
			if !variant.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "variant is not purchasable")
			}
			if currency == "" {
				currency = variant.Currency
			} else if currency != variant.Currency {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart mixes currencies")
			}

			product, err := catalogRepo.FindProductByID(ctx, variant.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			claimed, err := s.ledger.ClaimArticles(ctx, tx, variant.ID, line.Qty)
			if err != nil {
				return err
			}
			if len(claimed) < line.Qty {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{
						"variant_id": variant.ID.String(),
						"requested":  line.Qty,
						"available":  len(claimed),
					})
			}
			if err := s.ledger.AvailableToReserved(ctx, tx, variant.ID, line.Qty); err != nil {
				return err
			}

			lineTotal := variant.Price.Mul(decimal.NewFromInt(int64(line.Qty)))
			subtotal = subtotal.Add(lineTotal)

			for _, articleID := range claimed {
				id := articleID
				orderItems = append(orderItems, models.OrderItem{
					VariantID:  variant.ID,
					ArticleID:  &id,
					Name:       product.Name,
					Brand:      product.Brand,
					Storage:    variant.Storage,
					Color:      variant.Color,
					Qty:        1,
					UnitPrice:  variant.Price,
					TotalPrice: variant.Price,
				})
			}

			lines = append(lines, pkgstripe.CheckoutLine{
				Name:        productLineName(product.Brand, product.Name, variant.Storage, variant.Color),
				AmountMinor: variant.Price.Mul(decimal.NewFromInt(100)).IntPart(),
				Currency:    variant.Currency.String(),
				Qty:         int64(line.Qty),
			})
		}

		for i := range orderItems {
			orderItems[i].ID = uuid.New()
		}

		tax := subtotal.Mul(taxRates[input.Territory]).Round(2)
		total := subtotal.Add(shippingFlat).Add(tax)
		order = &models.Order{
			ID:                uuid.New(),
			OrderNumber:       newOrderNumber(now),
			UserID:            input.UserID,
			Territory:         input.Territory,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.PaymentStatusPending,
			Currency:          currency,
			Subtotal:          subtotal,
			ShippingAmount:    shippingFlat,
			TaxAmount:         tax,
			TotalAmount:       total,
			ShippingAddressID: &input.ShippingAddressID,
			BillingAddressID:  input.BillingAddressID,
			OrderedAt:         now,
			Items:             orderItems,
		}
		if err := tx.WithContext(ctx).Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		entry := &models.OrderStatusHistory{
			OrderID:     order.ID,
			FromStatus:  enums.OrderStatusPending,
			ToStatus:    enums.OrderStatusPending,
			ActorUserID: &input.UserID,
		}
		if err := orderRepo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		if err := cartRepo.Close(ctx, openCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close cart")
		}

		lines = append(lines, pkgstripe.CheckoutLine{
			Name:        "Shipping",
			AmountMinor: shippingFlat.Mul(decimal.NewFromInt(100)).IntPart(),
			Currency:    currency.String(),
			Qty:         1,
		})
		if tax.IsPositive() {
			lines = append(lines, pkgstripe.CheckoutLine{
				Name:        "Tax",
				AmountMinor: tax.Mul(decimal.NewFromInt(100)).IntPart(),
				Currency:    currency.String(),
				Qty:         1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := s.payments.CreateCheckoutSession(ctx, order.OrderNumber, lines, s.cfg.SuccessURL, s.cfg.CancelURL)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateOrder(ctx, order.ID, map[string]any{"checkout_session_id": session.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach session to order")
	}

	return &BeginResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SessionID:   session.ID,
		PaymentURL:  session.URL,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

func productLineName(brand, name, storage, color string) string {
	parts := []string{brand, name}
	if storage != "" {
		parts = append(parts, storage)
	}
	if color != "" {
		parts = append(parts, color)
	}
	return strings.Join(parts, " ")
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("CC-%s-%s", now.Format("20060102"), suffix)
}
