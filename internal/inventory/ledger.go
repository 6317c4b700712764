package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

// Ledger performs paired stock-counter adjustments and article status moves.
// Each operation runs against the caller's transaction so reservation, order
// and payment writes commit or roll back as one unit. A counter that would
// go negative aborts the transaction: the counters summing to the article
// count is a hard invariant, not a recoverable condition.
type Ledger struct{}

// NewLedger returns the shared inventory ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AvailableToReserved moves qty units from available to reserved.
func (l *Ledger) AvailableToReserved(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	return l.adjust(ctx, tx, variantID, qty, "available_stock", "reserved_stock")
}

// ReservedToSold moves qty units from reserved to sold.
func (l *Ledger) ReservedToSold(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	return l.adjust(ctx, tx, variantID, qty, "reserved_stock", "sold_stock")
}

// ReservedToAvailable returns qty reserved units to the available pool.
func (l *Ledger) ReservedToAvailable(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	return l.adjust(ctx, tx, variantID, qty, "reserved_stock", "available_stock")
}

// adjust decrements one counter and increments the other in a single UPDATE.
// The WHERE guard refuses the write when the source counter is short; that
// means the counters have drifted from the articles and we must not commit.
func (l *Ledger) adjust(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int, from, to string) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjustment")
	}

	res := tx.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE product_variants
		SET %s = %s - ?,
			%s = %s + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND %s >= ?
	`, from, from, to, to, from), qty, qty, variantID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock counters")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("stock counter underflow moving %s to %s for variant %s", from, to, variantID))
	}
	return nil
}

// MarkArticles transitions the given articles from one status to another.
// The transition fails when any article is missing or not in the expected
// status, so a partially claimed batch never commits.
func (l *Ledger) MarkArticles(ctx context.Context, tx *gorm.DB, articleIDs []uuid.UUID, from, to enums.ArticleStatus) error {
	if len(articleIDs) == 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for article transition")
	}

	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if to == enums.ArticleStatusSold {
		updates["sold_at"] = time.Now().UTC()
	}
	if from == enums.ArticleStatusSold && to != enums.ArticleStatusSold {
		updates["sold_at"] = nil
	}

	res := tx.WithContext(ctx).
		Table("articles").
		Where("id IN ? AND status = ? AND deleted_at IS NULL", articleIDs, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition articles")
	}
	if res.RowsAffected != int64(len(articleIDs)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("expected %d articles in status %s, matched %d", len(articleIDs), from, res.RowsAffected))
	}
	return nil
}

// ClaimArticles allocates up to qty in-stock articles of a variant in FIFO
// order and marks them reserved, returning the claimed IDs. Fewer than qty
// may be returned when stock is short; the caller decides whether that is
// acceptable.
func (l *Ledger) ClaimArticles(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) ([]uuid.UUID, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim quantity must be positive")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for article claim")
	}

	var ids []uuid.UUID
	err := tx.WithContext(ctx).
		Table("articles").
		Select("id").
		Where("variant_id = ? AND status = ? AND deleted_at IS NULL", variantID, enums.ArticleStatusInStock).
		Order("created_at ASC").
		Limit(qty).
		Scan(&ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select claimable articles")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := l.MarkArticles(ctx, tx, ids, enums.ArticleStatusInStock, enums.ArticleStatusReserved); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountersFor reads the counter triple for a variant inside the transaction.
func (l *Ledger) CountersFor(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (available, reserved, sold int, err error) {
	if tx == nil {
		return 0, 0, 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for counter read")
	}
	var row struct {
		AvailableStock int
		ReservedStock  int
		SoldStock      int
	}
	err = tx.WithContext(ctx).
		Table("product_variants").
		Select("available_stock", "reserved_stock", "sold_stock").
		Where("id = ?", variantID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, 0, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return 0, 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock counters")
	}
	return row.AvailableStock, row.ReservedStock, row.SoldStock, nil
}
