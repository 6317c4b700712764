package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/db"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines catalog reads and back-office writes.
type Service interface {
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	GetProduct(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	CreateVariant(ctx context.Context, input CreateVariantInput) (*models.ProductVariant, error)
	UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, price decimal.Decimal) error
	ReceiveStock(ctx context.Context, input ReceiveStockInput) (*ReceiveStockResult, error)
}

// CreateProductInput carries a new catalog listing.
type CreateProductInput struct {
	Brand       string
	Name        string
	Slug        string
	Description *string
}

// CreateVariantInput carries a new sellable SKU under a product.
type CreateVariantInput struct {
	ProductID uuid.UUID
	SKU       string
	Storage   string
	Color     string
	Price     decimal.Decimal
	Currency  enums.Currency
}

// ReceiveStockInput is an intake of physical units for a variant. Serial
// numbers are optional but when present must match the article count.
type ReceiveStockInput struct {
	VariantID     uuid.UUID
	ArticleNumber string
	Qty           int
	SerialNumbers []string
}

// ReceiveStockResult reports the created articles and the new counter value.
type ReceiveStockResult struct {
	VariantID      uuid.UUID
	CreatedCount   int
	AvailableStock int
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the catalog service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListProducts(ctx, true, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	brand := strings.TrimSpace(input.Brand)
	name := strings.TrimSpace(input.Name)
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if brand == "" || name == "" || slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand, name and slug required")
	}

	product := &models.Product{
		Brand:       brand,
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) CreateVariant(ctx context.Context, input CreateVariantInput) (*models.ProductVariant, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	sku := strings.TrimSpace(strings.ToUpper(input.SKU))
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	if _, err := s.repo.FindProductByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	variant := &models.ProductVariant{
		ProductID: input.ProductID,
		SKU:       sku,
		Storage:   strings.TrimSpace(input.Storage),
		Color:     strings.TrimSpace(input.Color),
		Price:     input.Price,
		Currency:  input.Currency,
		IsActive:  true,
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	return variant, nil
}

func (s *service) UpdateVariantPrice(ctx context.Context, variantID uuid.UUID, price decimal.Decimal) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if price.IsNegative() || price.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if _, err := s.repo.FindVariantByID(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if err := s.repo.UpdateVariant(ctx, variantID, map[string]any{"price": price}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	return nil
}

// ReceiveStock creates the physical article rows and bumps the available
// counter in the same transaction, so the counter sum stays equal to the
// article count.
func (s *service) ReceiveStock(ctx context.Context, input ReceiveStockInput) (*ReceiveStockResult, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	prefix := strings.TrimSpace(strings.ToUpper(input.ArticleNumber))
	if prefix == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "article number required")
	}
	if len(input.SerialNumbers) > 0 && len(input.SerialNumbers) != input.Qty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number count must match quantity")
	}

	var result ReceiveStockResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		variant, err := repo.FindVariantByID(ctx, input.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}

		articles := make([]models.Article, 0, input.Qty)
		for i := 0; i < input.Qty; i++ {
			article := models.Article{
				VariantID:     variant.ID,
				ArticleNumber: fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8]),
				Status:        enums.ArticleStatusInStock,
			}
			if len(input.SerialNumbers) > 0 {
				serial := strings.TrimSpace(input.SerialNumbers[i])
				if serial != "" {
					article.SerialNumber = &serial
				}
			}
			articles = append(articles, article)
		}
		if err := repo.CreateArticles(ctx, articles); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "duplicate serial number")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create articles")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET available_stock = available_stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, input.Qty, variant.ID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "bump available stock")
		}

		result = ReceiveStockResult{
			VariantID:      variant.ID,
			CreatedCount:   len(articles),
			AvailableStock: variant.AvailableStock + input.Qty,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
