package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// Repository exposes review persistence operations.
type Repository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, status enums.ReviewStatus, limit, offset int) ([]models.Review, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Review, error)
	UpdateModeration(ctx context.Context, id uuid.UUID, updates map[string]any) error
	HasConfirmedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, status enums.ReviewStatus, limit, offset int) ([]models.Review, error) {
	var list []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListPending(ctx context.Context, limit, offset int) ([]models.Review, error) {
	var list []models.Review
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ReviewStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) UpdateModeration(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// HasConfirmedPurchase reports whether the user has a confirmed order that
// contains a variant of the product.
func (r *repository) HasConfirmedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN product_variants ON product_variants.id = order_items.variant_id").
		Where("orders.user_id = ? AND orders.status = ? AND product_variants.product_id = ?",
			userID, enums.OrderStatusConfirmed, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
