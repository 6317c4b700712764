package access

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/db/models"
)

// Repository exposes the identity reads the gate depends on.
type Repository interface {
	FindUserWithGrants(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an access repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindUserWithGrants(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("SecondaryRoles").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
