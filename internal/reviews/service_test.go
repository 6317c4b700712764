package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

type stubReviewsRepo struct {
	review    *models.Review
	purchased bool
	created   *models.Review
	updates   map[string]any
}

func (s *stubReviewsRepo) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	s.created = review
	return nil
}

func (s *stubReviewsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	if s.review == nil || s.review.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.review, nil
}

func (s *stubReviewsRepo) ListByProduct(ctx context.Context, productID uuid.UUID, status enums.ReviewStatus, limit, offset int) ([]models.Review, error) {
	return nil, nil
}

func (s *stubReviewsRepo) ListPending(ctx context.Context, limit, offset int) ([]models.Review, error) {
	return nil, nil
}

func (s *stubReviewsRepo) UpdateModeration(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubReviewsRepo) HasConfirmedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.purchased, nil
}

func newReviewsService(t *testing.T, repo Repository) Service {
	t.Helper()

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestSubmitReview(t *testing.T) {
	t.Parallel()

	repo := &stubReviewsRepo{purchased: true}
	svc := newReviewsService(t, repo)

	review, err := svc.Submit(context.Background(), SubmitInput{
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		Rating:    4,
		Body:      "Solid phone, battery lasts two days.",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if review.Status != enums.ReviewStatusPending {
		t.Fatalf("expected pending review got %s", review.Status)
	}
	if repo.created == nil {
		t.Fatal("expected review persisted")
	}
}

func TestSubmitReviewWithoutPurchase(t *testing.T) {
	t.Parallel()

	svc := newReviewsService(t, &stubReviewsRepo{purchased: false})

	_, err := svc.Submit(context.Background(), SubmitInput{
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		Rating:    5,
		Body:      "Never bought it but looks great.",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	t.Parallel()

	svc := newReviewsService(t, &stubReviewsRepo{purchased: true})

	cases := []SubmitInput{
		{ProductID: uuid.New(), UserID: uuid.New(), Rating: 0, Body: "bad rating"},
		{ProductID: uuid.New(), UserID: uuid.New(), Rating: 6, Body: "bad rating"},
		{ProductID: uuid.New(), UserID: uuid.New(), Rating: 3, Body: "   "},
	}
	for _, input := range cases {
		_, err := svc.Submit(context.Background(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v got %v", input, err)
		}
	}
}

func TestModerateApprove(t *testing.T) {
	t.Parallel()

	review := &models.Review{ID: uuid.New(), Status: enums.ReviewStatusPending}
	repo := &stubReviewsRepo{review: review}
	svc := newReviewsService(t, repo)

	moderator := access.Actor{UserID: uuid.New(), ClaimedRole: enums.UserRoleModerator}
	err := svc.Moderate(context.Background(), ModerateInput{
		ReviewID: review.ID,
		Actor:    moderator,
		Approve:  true,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.updates["status"] != enums.ReviewStatusApproved {
		t.Fatalf("expected approved status got %v", repo.updates["status"])
	}
	if repo.updates["moderated_by"] != moderator.UserID {
		t.Fatal("expected moderator recorded")
	}
}

func TestModerateAlreadyResolved(t *testing.T) {
	t.Parallel()

	review := &models.Review{ID: uuid.New(), Status: enums.ReviewStatusApproved}
	svc := newReviewsService(t, &stubReviewsRepo{review: review})

	err := svc.Moderate(context.Background(), ModerateInput{
		ReviewID: review.ID,
		Actor:    access.Actor{UserID: uuid.New(), ClaimedRole: enums.UserRoleModerator},
		Approve:  false,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestModerateUnknownReview(t *testing.T) {
	t.Parallel()

	svc := newReviewsService(t, &stubReviewsRepo{})

	err := svc.Moderate(context.Background(), ModerateInput{
		ReviewID: uuid.New(),
		Actor:    access.Actor{UserID: uuid.New(), ClaimedRole: enums.UserRoleModerator},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
