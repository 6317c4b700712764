package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

// SubmitInput carries a new customer review.
type SubmitInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Title     *string
	Body      string
}

// ModerateInput resolves a pending review.
type ModerateInput struct {
	ReviewID uuid.UUID
	Actor    access.Actor
	Approve  bool
	Note     *string
}

// Service defines review submission and moderation.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Review, error)
	ListApproved(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Review, error)
	Moderate(ctx context.Context, input ModerateInput) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the reviews service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Submit records a review in pending status. Only customers with a confirmed
// purchase of the product may review it.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Review, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review body required")
	}

	purchased, err := s.repo.HasConfirmedPurchase(ctx, input.UserID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}
	if !purchased {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reviews require a confirmed purchase")
	}

	review := &models.Review{
		ProductID: input.ProductID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Title:     input.Title,
		Body:      body,
		Status:    enums.ReviewStatusPending,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

func (s *service) ListApproved(ctx context.Context, productID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	limit, offset = clampPage(limit, offset)
	list, err := s.repo.ListByProduct(ctx, productID, enums.ReviewStatusApproved, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return list, nil
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]models.Review, error) {
	limit, offset = clampPage(limit, offset)
	list, err := s.repo.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending reviews")
	}
	return list, nil
}

// Moderate resolves a pending review. Re-moderating an already resolved
// review is refused.
func (s *service) Moderate(ctx context.Context, input ModerateInput) error {
	if input.ReviewID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}

	review, err := s.repo.FindByID(ctx, input.ReviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review.Status != enums.ReviewStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "review already moderated")
	}

	status := enums.ReviewStatusRejected
	if input.Approve {
		status = enums.ReviewStatusApproved
	}
	now := s.now().UTC()
	updates := map[string]any{
		"status":       status,
		"moderated_by": input.Actor.UserID,
		"moderated_at": now,
	}
	if input.Note != nil {
		updates["moderation_note"] = *input.Note
	}
	if err := s.repo.UpdateModeration(ctx, review.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
