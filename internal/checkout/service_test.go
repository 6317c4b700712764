package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
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

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  storage TEXT NOT NULL,
  color TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  available_stock INTEGER NOT NULL DEFAULT 0,
  reserved_stock INTEGER NOT NULL DEFAULT 0,
  sold_stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS articles (
  id TEXT PRIMARY KEY,
  variant_id TEXT NOT NULL,
  article_number TEXT NOT NULL,
  serial_number TEXT,
  status TEXT NOT NULL DEFAULT 'in_stock',
  sold_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  territory TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal NUMERIC NOT NULL,
  shipping_amount NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL,
  total_amount NUMERIC NOT NULL,
  shipping_address_id TEXT,
  billing_address_id TEXT,
  checkout_session_id TEXT,
  ordered_at DATETIME NOT NULL,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  article_id TEXT,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  storage TEXT NOT NULL,
  color TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

type stubCartRepo struct {
	cart   *models.Cart
	closed []uuid.UUID
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if s.cart == nil || s.cart.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) Create(ctx context.Context, c *models.Cart) error {
	panic("not implemented")
}

func (s *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	panic("not implemented")
}

func (s *stubCartRepo) UpdateItemQty(ctx context.Context, itemID uuid.UUID, qty int) error {
	panic("not implemented")
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCartRepo) Close(ctx context.Context, cartID uuid.UUID) error {
	s.closed = append(s.closed, cartID)
	return nil
}

type stubCatalogRepo struct {
	variants map[uuid.UUID]*models.ProductVariant
	products map[uuid.UUID]*models.Product
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	panic("not implemented")
}

func (s *stubCatalogRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubCatalogRepo) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, onlyActive bool, limit, offset int) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalogRepo) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	panic("not implemented")
}

func (s *stubCatalogRepo) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := s.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return variant, nil
}

func (s *stubCatalogRepo) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubCatalogRepo) CreateArticles(ctx context.Context, list []models.Article) error {
	panic("not implemented")
}

type stubOrderWriter struct {
	history []*models.OrderStatusHistory
	updated map[string]any
}

func (s *stubOrderWriter) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderWriter) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderWriter) FindByCheckoutSession(ctx context.Context, sessionID string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderWriter) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderWriter) List(ctx context.Context, filter orders.ListFilter, limit, offset int) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderWriter) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updated = updates
	return nil
}

func (s *stubOrderWriter) CreatePayment(ctx context.Context, payment *models.Payment) error {
	panic("not implemented")
}

func (s *stubOrderWriter) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	s.history = append(s.history, entry)
	return nil
}

type checkoutTxRunner struct {
	db *gorm.DB
}

func (r checkoutTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type stubSessionCreator struct {
	session   *stripelib.CheckoutSession
	err       error
	reference string
	lines     []pkgstripe.CheckoutLine
}

func (s *stubSessionCreator) CreateCheckoutSession(ctx context.Context, reference string, lines []pkgstripe.CheckoutLine, successURL, cancelURL string) (*stripelib.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reference = reference
	s.lines = lines
	return s.session, nil
}

func seedCheckoutVariant(t *testing.T, db *gorm.DB, available int, price decimal.Decimal) (*models.ProductVariant, *models.Product, []uuid.UUID) {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Brand:    "Samsung",
		Name:     "Galaxy A54",
		Slug:     "samsung-galaxy-a54",
		IsActive: true,
	}
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		SKU:       "SAM-A54-128-BLK",
		Storage:   "128GB",
		Color:     "black",
		Price:     price,
		Currency:  enums.CurrencyUSD,
		IsActive:  true,
	}
	err := db.Exec(`
		INSERT INTO product_variants (id, product_id, sku, storage, color, price, currency, available_stock)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, variant.ID, product.ID, variant.SKU, variant.Storage, variant.Color, variant.Price, variant.Currency, available).Error
	if err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	variant.AvailableStock = available

	base := time.Now().UTC().Add(-time.Hour)
	articleIDs := make([]uuid.UUID, 0, available)
	for i := 0; i < available; i++ {
		id := uuid.New()
		created := base.Add(time.Duration(i) * time.Minute)
		err := db.Exec(`
			INSERT INTO articles (id, variant_id, article_number, status, created_at, updated_at)
			VALUES (?, ?, ?, 'in_stock', ?, ?)
		`, id, variant.ID, "CC-"+uuid.NewString()[:8], created, created).Error
		if err != nil {
			t.Fatalf("seed article: %v", err)
		}
		articleIDs = append(articleIDs, id)
	}
	return variant, product, articleIDs
}

func newCheckoutService(t *testing.T, db *gorm.DB, cartRepo cart.Repository, catalogRepo catalog.Repository, orderRepo orders.Repository, payments sessionCreator) Service {
	t.Helper()

	cfg := config.CheckoutConfig{
		SuccessURL: "https://shop.caribcell.test/checkout/success",
		CancelURL:  "https://shop.caribcell.test/checkout/cancel",
	}
	svc, err := NewService(cartRepo, catalogRepo, orderRepo, inventory.NewLedger(), checkoutTxRunner{db: db}, payments, cfg)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestBeginCheckout(t *testing.T) {
	db := setupCheckoutTestDB(t)
	userID := uuid.New()
	price := decimal.RequireFromString("499.99")
	variant, product, _ := seedCheckoutVariant(t, db, 2, price)

	cartRepo := &stubCartRepo{cart: &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Open:   true,
		Items: []models.CartItem{
			{ID: uuid.New(), VariantID: variant.ID, Qty: 2, UnitPrice: price},
		},
	}}
	catalogRepo := &stubCatalogRepo{
		variants: map[uuid.UUID]*models.ProductVariant{variant.ID: variant},
		products: map[uuid.UUID]*models.Product{product.ID: product},
	}
	orderRepo := &stubOrderWriter{}
	payments := &stubSessionCreator{session: &stripelib.CheckoutSession{
		ID:  "cs_test_begin",
		URL: "https://checkout.stripe.test/cs_test_begin",
	}}
	svc := newCheckoutService(t, db, cartRepo, catalogRepo, orderRepo, payments)

	shippingAddress := uuid.New()
	result, err := svc.Begin(context.Background(), BeginInput{
		UserID:            userID,
		Territory:         enums.TerritoryJamaica,
		ShippingAddressID: shippingAddress,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.SessionID != "cs_test_begin" || result.PaymentURL == "" {
		t.Fatalf("unexpected session result: %+v", result)
	}
	subtotal := price.Mul(decimal.NewFromInt(2))
	wantTax := subtotal.Mul(decimal.RequireFromString("0.15")).Round(2)
	wantTotal := subtotal.Add(decimal.NewFromInt(10)).Add(wantTax)
	if !result.TotalAmount.Equal(wantTotal) {
		t.Fatalf("expected total %s got %s", wantTotal, result.TotalAmount)
	}
	if payments.reference != result.OrderNumber {
		t.Fatalf("session reference %q does not match order number %q", payments.reference, result.OrderNumber)
	}
	// two product units collapse into one cart line, plus shipping and tax lines
	if len(payments.lines) != 3 {
		t.Fatalf("expected 3 checkout lines got %d", len(payments.lines))
	}

	var order models.Order
	if err := db.Preload("Items").Where("id = ?", result.OrderID).First(&order).Error; err != nil {
		t.Fatalf("load created order: %v", err)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("unexpected order state: %s/%s", order.Status, order.PaymentStatus)
	}
	if !order.TaxAmount.Equal(wantTax) {
		t.Fatalf("expected tax %s got %s", wantTax, order.TaxAmount)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected one item per allocated unit got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.ArticleID == nil || item.Qty != 1 {
			t.Fatalf("expected allocated single-unit item got %+v", item)
		}
	}

	available, reserved, sold, err := inventory.NewLedger().CountersFor(context.Background(), db, variant.ID)
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	if available != 0 || reserved != 2 || sold != 0 {
		t.Fatalf("unexpected counters: %d/%d/%d", available, reserved, sold)
	}

	if len(cartRepo.closed) != 1 || cartRepo.closed[0] != cartRepo.cart.ID {
		t.Fatal("expected the cart to be closed")
	}
	if orderRepo.updated == nil || orderRepo.updated["checkout_session_id"] != "cs_test_begin" {
		t.Fatalf("expected session attached to order got %+v", orderRepo.updated)
	}
	if len(orderRepo.history) != 1 {
		t.Fatalf("expected one history entry got %d", len(orderRepo.history))
	}
}

func TestBeginCheckoutInsufficientStock(t *testing.T) {
	db := setupCheckoutTestDB(t)
	userID := uuid.New()
	price := decimal.RequireFromString("299.00")
	variant, product, _ := seedCheckoutVariant(t, db, 1, price)

	cartRepo := &stubCartRepo{cart: &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Open:   true,
		Items: []models.CartItem{
			{ID: uuid.New(), VariantID: variant.ID, Qty: 2, UnitPrice: price},
		},
	}}
	catalogRepo := &stubCatalogRepo{
		variants: map[uuid.UUID]*models.ProductVariant{variant.ID: variant},
		products: map[uuid.UUID]*models.Product{product.ID: product},
	}
	svc := newCheckoutService(t, db, cartRepo, catalogRepo, &stubOrderWriter{}, &stubSessionCreator{})

	_, err := svc.Begin(context.Background(), BeginInput{
		UserID:            userID,
		Territory:         enums.TerritoryJamaica,
		ShippingAddressID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}

	var orderCount int64
	if err := db.Table("orders").Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatal("failed checkout must not leave an order behind")
	}
	var reservedCount int64
	if err := db.Table("articles").
		Where("variant_id = ? AND status = ?", variant.ID, enums.ArticleStatusReserved).
		Count(&reservedCount).Error; err != nil {
		t.Fatalf("count reserved articles: %v", err)
	}
	if reservedCount != 0 {
		t.Fatal("failed checkout must release its claims")
	}
	if len(cartRepo.closed) != 0 {
		t.Fatal("failed checkout must leave the cart open")
	}
}

func TestBeginCheckoutEmptyCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	userID := uuid.New()

	cartRepo := &stubCartRepo{cart: &models.Cart{ID: uuid.New(), UserID: userID, Open: true}}
	svc := newCheckoutService(t, db, cartRepo, &stubCatalogRepo{}, &stubOrderWriter{}, &stubSessionCreator{})

	_, err := svc.Begin(context.Background(), BeginInput{
		UserID:            userID,
		Territory:         enums.TerritoryJamaica,
		ShippingAddressID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestBeginCheckoutInactiveVariant(t *testing.T) {
	db := setupCheckoutTestDB(t)
	userID := uuid.New()
	price := decimal.RequireFromString("199.00")
	variant, product, _ := seedCheckoutVariant(t, db, 1, price)
	variant.IsActive = false

	cartRepo := &stubCartRepo{cart: &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Open:   true,
		Items: []models.CartItem{
			{ID: uuid.New(), VariantID: variant.ID, Qty: 1, UnitPrice: price},
		},
	}}
	catalogRepo := &stubCatalogRepo{
		variants: map[uuid.UUID]*models.ProductVariant{variant.ID: variant},
		products: map[uuid.UUID]*models.Product{product.ID: product},
	}
	svc := newCheckoutService(t, db, cartRepo, catalogRepo, &stubOrderWriter{}, &stubSessionCreator{})

	_, err := svc.Begin(context.Background(), BeginInput{
		UserID:            userID,
		Territory:         enums.TerritoryJamaica,
		ShippingAddressID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}
