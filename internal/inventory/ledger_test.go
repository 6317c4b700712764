package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

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
	require.NoError(t, db.Exec(variants).Error)
	require.NoError(t, db.Exec(articles).Error)
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, available, reserved, sold int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(`
		INSERT INTO product_variants (id, product_id, sku, storage, color, available_stock, reserved_stock, sold_stock)
		VALUES (?, ?, ?, '128GB', 'black', ?, ?, ?)
	`, id, uuid.New(), "SKU-"+uuid.NewString()[:8], available, reserved, sold).Error
	require.NoError(t, err)
	return id
}

func seedArticle(t *testing.T, db *gorm.DB, variantID uuid.UUID, status enums.ArticleStatus, created time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(`
		INSERT INTO articles (id, variant_id, article_number, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, variantID, "CC-"+uuid.NewString()[:8], status, created, created).Error
	require.NoError(t, err)
	return id
}

func counters(t *testing.T, db *gorm.DB, variantID uuid.UUID) (int, int, int) {
	t.Helper()

	available, reserved, sold, err := NewLedger().CountersFor(context.Background(), db, variantID)
	require.NoError(t, err)
	return available, reserved, sold
}

func TestLedgerPairedAdjustmentsPreserveSum(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 5, 0, 0)

	require.NoError(t, ledger.AvailableToReserved(ctx, db, variantID, 3))
	available, reserved, sold := counters(t, db, variantID)
	assert.Equal(t, 2, available)
	assert.Equal(t, 3, reserved)
	assert.Equal(t, 0, sold)
	assert.Equal(t, 5, available+reserved+sold)

	require.NoError(t, ledger.ReservedToSold(ctx, db, variantID, 2))
	available, reserved, sold = counters(t, db, variantID)
	assert.Equal(t, 2, available)
	assert.Equal(t, 1, reserved)
	assert.Equal(t, 2, sold)
	assert.Equal(t, 5, available+reserved+sold)

	require.NoError(t, ledger.ReservedToAvailable(ctx, db, variantID, 1))
	available, reserved, sold = counters(t, db, variantID)
	assert.Equal(t, 3, available)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 2, sold)
	assert.Equal(t, 5, available+reserved+sold)
}

func TestLedgerUnderflowAbortsTransaction(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 1, 0, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.AvailableToReserved(ctx, tx, variantID, 1); err != nil {
			return err
		}
		return ledger.ReservedToSold(ctx, tx, variantID, 2)
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())

	available, reserved, sold := counters(t, db, variantID)
	assert.Equal(t, 1, available, "rolled back reservation should be restored")
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 0, sold)
}

func TestLedgerAdjustRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ledger := NewLedger()
	variantID := seedVariant(t, db, 5, 0, 0)

	err := ledger.AvailableToReserved(context.Background(), db, variantID, 0)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestLedgerMarkArticles(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 0, 2, 0)
	now := time.Now().UTC()
	first := seedArticle(t, db, variantID, enums.ArticleStatusReserved, now)
	second := seedArticle(t, db, variantID, enums.ArticleStatusReserved, now)

	err := ledger.MarkArticles(ctx, db, []uuid.UUID{first, second}, enums.ArticleStatusReserved, enums.ArticleStatusSold)
	require.NoError(t, err)

	var row struct {
		Status string
		SoldAt *time.Time
	}
	require.NoError(t, db.Table("articles").Select("status", "sold_at").Where("id = ?", first).Take(&row).Error)
	assert.Equal(t, string(enums.ArticleStatusSold), row.Status)
	assert.NotNil(t, row.SoldAt)
}

func TestLedgerMarkArticlesStatusMismatch(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 1, 1, 0)
	now := time.Now().UTC()
	reserved := seedArticle(t, db, variantID, enums.ArticleStatusReserved, now)
	inStock := seedArticle(t, db, variantID, enums.ArticleStatusInStock, now)

	err := ledger.MarkArticles(ctx, db, []uuid.UUID{reserved, inStock}, enums.ArticleStatusReserved, enums.ArticleStatusSold)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestLedgerClaimArticlesFIFO(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 3, 0, 0)
	base := time.Now().UTC().Add(-time.Hour)
	oldest := seedArticle(t, db, variantID, enums.ArticleStatusInStock, base)
	middle := seedArticle(t, db, variantID, enums.ArticleStatusInStock, base.Add(time.Minute))
	seedArticle(t, db, variantID, enums.ArticleStatusInStock, base.Add(2*time.Minute))

	claimed, err := ledger.ClaimArticles(ctx, db, variantID, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, oldest, claimed[0])
	assert.Equal(t, middle, claimed[1])

	var count int64
	require.NoError(t, db.Table("articles").
		Where("variant_id = ? AND status = ?", variantID, enums.ArticleStatusReserved).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestLedgerClaimArticlesShortStock(t *testing.T) {
	t.Parallel()

	db := setupLedgerTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	variantID := seedVariant(t, db, 1, 0, 0)
	seedArticle(t, db, variantID, enums.ArticleStatusInStock, time.Now().UTC())

	claimed, err := ledger.ClaimArticles(ctx, db, variantID, 5)
	require.NoError(t, err)
	assert.Len(t, claimed, 1, "claim returns what is on hand, caller decides")

	empty, err := ledger.ClaimArticles(ctx, db, variantID, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
