package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string              `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash   string              `gorm:"column:password_hash;not null"`
	FirstName      string              `gorm:"column:first_name;not null"`
	LastName       string              `gorm:"column:last_name;not null"`
	Phone          *string             `gorm:"column:phone"`
	Role           enums.UserRole      `gorm:"column:role;type:text;not null;default:'customer'"`
	Status         enums.AccountStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Territory      enums.Territory     `gorm:"column:territory;type:text;not null"`
	LastLoginAt    *time.Time          `gorm:"column:last_login_at"`
	SecondaryRoles []UserRoleGrant     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// UserRoleGrant is a secondary role assignment that may expire.
type UserRoleGrant struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null"`
	ExpiresAt *time.Time     `gorm:"column:expires_at"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// Active reports whether the grant is usable at the given instant.
func (g UserRoleGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
