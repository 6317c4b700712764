package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/internal/inventory"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

func setupFlowTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
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
);`
	articles := `
CREATE TABLE IF NOT EXISTS articles (
  id TEXT PRIMARY KEY,
  variant_id TEXT NOT NULL,
  article_number TEXT NOT NULL,
  serial_number TEXT,
  status TEXT NOT NULL DEFAULT 'in_stock',
  sold_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	if err := db.Exec(variants).Error; err != nil {
		t.Fatalf("create product_variants: %v", err)
	}
	if err := db.Exec(articles).Error; err != nil {
		t.Fatalf("create articles: %v", err)
	}
	return db
}

func seedFlowVariant(t *testing.T, db *gorm.DB, available, reserved, sold int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(`
		INSERT INTO product_variants (id, product_id, sku, storage, color, available_stock, reserved_stock, sold_stock)
		VALUES (?, ?, ?, '128GB', 'black', ?, ?, ?)
	`, id, uuid.New(), "SKU-"+uuid.NewString()[:8], available, reserved, sold).Error
	if err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return id
}

func seedFlowArticle(t *testing.T, db *gorm.DB, variantID uuid.UUID, status enums.ArticleStatus) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	err := db.Exec(`
		INSERT INTO articles (id, variant_id, article_number, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, variantID, "CC-"+uuid.NewString()[:8], status, now, now).Error
	if err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return id
}

func flowCounters(t *testing.T, db *gorm.DB, variantID uuid.UUID) (int, int, int) {
	t.Helper()

	available, reserved, sold, err := inventory.NewLedger().CountersFor(context.Background(), db, variantID)
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	return available, reserved, sold
}

type stubOrdersRepo struct {
	order        *models.Order
	orderUpdates map[string]any
	payments     []*models.Payment
	history      []*models.OrderStatusHistory
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByCheckoutSession(ctx context.Context, sessionID string) (*models.Order, error) {
	if s.order == nil || s.order.CheckoutSessionID == nil || *s.order.CheckoutSessionID != sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if s.order == nil || s.order.UserID != userID {
		return nil, nil
	}
	return []models.Order{*s.order}, nil
}

func (s *stubOrdersRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Order, error) {
	if s.order == nil {
		return nil, nil
	}
	if filter.Status != "" && s.order.Status != filter.Status {
		return nil, nil
	}
	return []models.Order{*s.order}, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.order == nil || s.order.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.orderUpdates = updates
	if v, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = v
	}
	if v, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		s.order.PaymentStatus = v
	}
	return nil
}

func (s *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments = append(s.payments, payment)
	return nil
}

func (s *stubOrdersRepo) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	s.history = append(s.history, entry)
	return nil
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type stubSessionVerifier struct {
	session *stripelib.CheckoutSession
	err     error
	calls   int
}

func (s *stubSessionVerifier) GetCheckoutSession(ctx context.Context, sessionID string) (*stripelib.CheckoutSession, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func paidSession(sessionID string) *stripelib.CheckoutSession {
	return &stripelib.CheckoutSession{
		ID:            sessionID,
		PaymentStatus: stripelib.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripelib.PaymentIntent{ID: "pi_test_123"},
	}
}

func pendingOrder(userID uuid.UUID, sessionID string, items []models.OrderItem) *models.Order {
	session := sessionID
	return &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "CC-20260828-TEST0001",
		UserID:            userID,
		Territory:         enums.TerritoryJamaica,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		Currency:          enums.CurrencyUSD,
		CheckoutSessionID: &session,
		Items:             items,
		OrderedAt:         time.Now().UTC(),
	}
}

// stubGate answers from the canonical permission table without loading the
// account, so non-owner access in these tests follows the production grants.
type stubGate struct {
	table *access.PermissionTable
	calls int
}

func (g *stubGate) Authorize(ctx context.Context, actor access.Actor, perm enums.Permission) error {
	g.calls++
	if !actor.ClaimedRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role claim")
	}
	if !g.table.Allows(actor.ClaimedRole, perm) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role lacks permission")
	}
	return nil
}

func newFlowService(t *testing.T, repo *stubOrdersRepo, db *gorm.DB, verifier *stubSessionVerifier) Service {
	t.Helper()

	gate := &stubGate{table: access.NewPermissionTable()}
	svc, err := NewService(repo, dbTxRunner{db: db}, inventory.NewLedger(), verifier, gate, nil, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func customerActor(userID uuid.UUID) access.Actor {
	return access.Actor{UserID: userID, ClaimedRole: enums.UserRoleCustomer, Territory: enums.TerritoryJamaica}
}

func staffActor(role enums.UserRole) access.Actor {
	return access.Actor{UserID: uuid.New(), ClaimedRole: role, Territory: enums.TerritoryJamaica}
}

func TestConfirmPayment(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	sessionID := "cs_test_" + uuid.NewString()[:8]
	variantID := seedFlowVariant(t, db, 0, 2, 0)
	firstArticle := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)
	secondArticle := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	order := pendingOrder(userID, sessionID, []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &firstArticle, Qty: 1},
		{ID: uuid.New(), VariantID: variantID, ArticleID: &secondArticle, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	result, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     customerActor(userID),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Replayed {
		t.Fatal("unexpected replay on first confirmation")
	}
	if result.Status != enums.OrderStatusConfirmed || result.PaymentStatus != enums.PaymentStatusSucceeded {
		t.Fatalf("unexpected result state: %+v", result)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected one session lookup got %d", verifier.calls)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("expected one payment row got %d", len(repo.payments))
	}
	payment := repo.payments[0]
	if payment.Status != enums.PaymentStatusSucceeded {
		t.Fatalf("unexpected payment status %s", payment.Status)
	}
	if payment.ProviderReference == nil || *payment.ProviderReference != "pi_test_123" {
		t.Fatal("expected provider reference from the session payment intent")
	}
	if len(repo.history) != 1 || repo.history[0].ToStatus != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed history entry got %+v", repo.history)
	}

	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 0 || reserved != 0 || sold != 2 {
		t.Fatalf("unexpected counters after confirmation: %d/%d/%d", available, reserved, sold)
	}
	var soldCount int64
	if err := db.Table("articles").
		Where("variant_id = ? AND status = ?", variantID, enums.ArticleStatusSold).
		Count(&soldCount).Error; err != nil {
		t.Fatalf("count sold articles: %v", err)
	}
	if soldCount != 2 {
		t.Fatalf("expected 2 sold articles got %d", soldCount)
	}
}

func TestConfirmPaymentReplay(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	sessionID := "cs_test_replay"

	order := pendingOrder(userID, sessionID, nil)
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusSucceeded
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	result, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     customerActor(userID),
	})
	if err != nil {
		t.Fatalf("expected replay success got %v", err)
	}
	if !result.Replayed {
		t.Fatal("expected replayed result")
	}
	if len(repo.payments) != 0 {
		t.Fatal("replay must not create payment rows")
	}
	if repo.orderUpdates != nil {
		t.Fatal("replay must not touch the order row")
	}
}

func TestConfirmPaymentAfterCancellation(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	sessionID := "cs_test_cancelled"

	order := pendingOrder(userID, sessionID, nil)
	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = enums.PaymentStatusCancelled
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     customerActor(userID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestConfirmPaymentUnpaidSession(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	sessionID := "cs_test_unpaid"
	variantID := seedFlowVariant(t, db, 0, 1, 0)
	articleID := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	order := pendingOrder(userID, sessionID, []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &articleID, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: &stripelib.CheckoutSession{
		ID:            sessionID,
		PaymentStatus: stripelib.CheckoutSessionPaymentStatusUnpaid,
	}}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     customerActor(userID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentUnconfirmed {
		t.Fatalf("expected payment unconfirmed got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("unpaid session must not create payment rows")
	}

	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 0 || reserved != 1 || sold != 0 {
		t.Fatalf("counters must be untouched: %d/%d/%d", available, reserved, sold)
	}
}

func TestConfirmPaymentUnknownSession(t *testing.T) {
	db := setupFlowTestDB(t)
	repo := &stubOrdersRepo{}
	verifier := &stubSessionVerifier{session: paidSession("cs_test_missing")}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: "cs_test_missing",
		Actor:     customerActor(uuid.New()),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestConfirmPaymentOtherCustomersOrder(t *testing.T) {
	db := setupFlowTestDB(t)
	sessionID := "cs_test_foreign"

	order := pendingOrder(uuid.New(), sessionID, nil)
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     customerActor(uuid.New()),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestCancel(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	variantID := seedFlowVariant(t, db, 0, 1, 0)
	articleID := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	order := pendingOrder(userID, "cs_test_cancel", []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &articleID, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   customerActor(userID),
		Reason:  "changed my mind",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Replayed {
		t.Fatal("unexpected replay on first cancellation")
	}
	if result.Status != enums.OrderStatusCancelled || result.PaymentStatus != enums.PaymentStatusCancelled {
		t.Fatalf("unexpected result state: %+v", result)
	}
	if result.ReleasedArticles != 1 {
		t.Fatalf("expected 1 released article got %d", result.ReleasedArticles)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("expected one cancelled payment row got %d", len(repo.payments))
	}
	payment := repo.payments[0]
	if payment.Status != enums.PaymentStatusCancelled {
		t.Fatalf("unexpected payment status %s", payment.Status)
	}
	var meta map[string]string
	if err := json.Unmarshal(payment.Metadata, &meta); err != nil {
		t.Fatalf("decode payment metadata: %v", err)
	}
	if meta["reason"] != "changed my mind" {
		t.Fatalf("unexpected cancellation reason %q", meta["reason"])
	}
	if len(repo.history) != 1 || repo.history[0].Note == nil || *repo.history[0].Note != "changed my mind" {
		t.Fatalf("expected history entry with note got %+v", repo.history)
	}

	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 1 || reserved != 0 || sold != 0 {
		t.Fatalf("unexpected counters after cancellation: %d/%d/%d", available, reserved, sold)
	}
	var inStock int64
	if err := db.Table("articles").
		Where("id = ? AND status = ?", articleID, enums.ArticleStatusInStock).
		Count(&inStock).Error; err != nil {
		t.Fatalf("count released articles: %v", err)
	}
	if inStock != 1 {
		t.Fatal("expected the article back in stock")
	}
}

func TestCancelAfterSettlement(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()

	order := pendingOrder(userID, "cs_test_settled", nil)
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusSucceeded
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   customerActor(userID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("refused cancellation must not create payment rows")
	}
}

func TestCancelIdempotent(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()

	order := pendingOrder(userID, "cs_test_repeat", nil)
	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = enums.PaymentStatusCancelled
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   customerActor(userID),
	})
	if err != nil {
		t.Fatalf("expected replay success got %v", err)
	}
	if !result.Replayed {
		t.Fatal("expected replayed result")
	}
	if len(repo.payments) != 0 || repo.orderUpdates != nil {
		t.Fatal("replay must not write")
	}
}

func TestCancelNotFound(t *testing.T) {
	db := setupFlowTestDB(t)
	repo := &stubOrdersRepo{}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: uuid.New(),
		Actor:   customerActor(uuid.New()),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestListOrdersFilter(t *testing.T) {
	db := setupFlowTestDB(t)
	sessionID := "cs_test_list"
	order := pendingOrder(uuid.New(), sessionID, nil)
	order.Status = enums.OrderStatusConfirmed
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	list, err := svc.List(context.Background(), ListFilter{Status: enums.OrderStatusConfirmed}, 25, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].OrderNumber != order.OrderNumber {
		t.Fatalf("unexpected listing: %+v", list)
	}

	list, err = svc.List(context.Background(), ListFilter{Status: enums.OrderStatusCancelled}, 25, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty listing got %+v", list)
	}

	_, err = svc.List(context.Background(), ListFilter{Status: enums.OrderStatus("archived")}, 25, 0)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestCancelByModeratorForbidden(t *testing.T) {
	db := setupFlowTestDB(t)
	variantID := seedFlowVariant(t, db, 0, 1, 0)
	articleID := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	order := pendingOrder(uuid.New(), "cs_test_mod", []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &articleID, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   staffActor(enums.UserRoleModerator),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}

	if len(repo.payments) != 0 || repo.orderUpdates != nil || len(repo.history) != 0 {
		t.Fatal("refused cancellation must not write anything")
	}
	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 0 || reserved != 1 || sold != 0 {
		t.Fatalf("counters must be untouched, got %d/%d/%d", available, reserved, sold)
	}
	var status string
	if err := db.Raw(`SELECT status FROM articles WHERE id = ?`, articleID).Scan(&status).Error; err != nil {
		t.Fatalf("read article: %v", err)
	}
	if status != string(enums.ArticleStatusReserved) {
		t.Fatalf("article must stay reserved, got %s", status)
	}
}

func TestCancelByAgentOnForeignOrder(t *testing.T) {
	db := setupFlowTestDB(t)
	variantID := seedFlowVariant(t, db, 0, 1, 0)
	articleID := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	order := pendingOrder(uuid.New(), "cs_test_agent", []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &articleID, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	svc := newFlowService(t, repo, db, &stubSessionVerifier{})

	result, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   staffActor(enums.UserRoleAgent),
		Reason:  "fraud review",
	})
	if err != nil {
		t.Fatalf("agent cancellation failed: %v", err)
	}
	if result.Status != enums.OrderStatusCancelled || result.ReleasedArticles != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 1 || reserved != 0 || sold != 0 {
		t.Fatalf("unexpected counters: %d/%d/%d", available, reserved, sold)
	}
}

func TestConfirmPaymentByModeratorForbidden(t *testing.T) {
	db := setupFlowTestDB(t)
	variantID := seedFlowVariant(t, db, 0, 1, 0)
	articleID := seedFlowArticle(t, db, variantID, enums.ArticleStatusReserved)

	sessionID := "cs_test_mod_confirm"
	order := pendingOrder(uuid.New(), sessionID, []models.OrderItem{
		{ID: uuid.New(), VariantID: variantID, ArticleID: &articleID, Qty: 1},
	})
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		Actor:     staffActor(enums.UserRoleModerator),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
	if len(repo.payments) != 0 || repo.orderUpdates != nil {
		t.Fatal("refused confirmation must not write anything")
	}
	available, reserved, sold := flowCounters(t, db, variantID)
	if available != 0 || reserved != 1 || sold != 0 {
		t.Fatalf("counters must be untouched, got %d/%d/%d", available, reserved, sold)
	}
}

func TestConfirmPaymentOrderMismatch(t *testing.T) {
	db := setupFlowTestDB(t)
	userID := uuid.New()
	sessionID := "cs_test_mismatch"

	order := pendingOrder(userID, sessionID, nil)
	repo := &stubOrdersRepo{order: order}
	verifier := &stubSessionVerifier{session: paidSession(sessionID)}
	svc := newFlowService(t, repo, db, verifier)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		SessionID: sessionID,
		OrderID:   uuid.New(),
		Actor:     customerActor(userID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
	if len(repo.payments) != 0 || repo.orderUpdates != nil {
		t.Fatal("mismatched confirmation must not write anything")
	}
}

func TestFlowResultJSONFields(t *testing.T) {
	t.Parallel()

	confirm, err := json.Marshal(ConfirmPaymentResult{Replayed: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var confirmKeys map[string]any
	if err := json.Unmarshal(confirm, &confirmKeys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"order_id", "already_processed", "unallocated_items"} {
		if _, ok := confirmKeys[key]; !ok {
			t.Fatalf("confirmation response missing %q: %s", key, confirm)
		}
	}
	if _, ok := confirmKeys["Replayed"]; ok {
		t.Fatalf("confirmation response leaks Go field names: %s", confirm)
	}

	cancel, err := json.Marshal(CancelResult{Replayed: true, ReleasedArticles: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var cancelKeys map[string]any
	if err := json.Unmarshal(cancel, &cancelKeys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"order_id", "already_processed", "released_articles"} {
		if _, ok := cancelKeys[key]; !ok {
			t.Fatalf("cancellation response missing %q: %s", key, cancel)
		}
	}
}
