package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// RegisterInput carries a new customer signup.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Territory enums.Territory
}

// LoginInput carries a credential check.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the issued token plus the authenticated profile.
type LoginResult struct {
	AccessToken string  `json:"access_token"`
	Profile     Profile `json:"profile"`
}

// Profile is the public projection of a user account.
type Profile struct {
	ID          uuid.UUID           `json:"id"`
	Email       string              `json:"email"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Phone       *string             `json:"phone,omitempty"`
	Role        enums.UserRole      `json:"role"`
	Status      enums.AccountStatus `json:"status"`
	Territory   enums.Territory     `json:"territory"`
	ExtraRoles  []enums.UserRole    `json:"extra_roles,omitempty"`
	LastLoginAt *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AddressInput carries a new saved destination.
type AddressInput struct {
	UserID    uuid.UUID
	Name      string
	Line1     string
	Line2     *string
	City      string
	Parish    *string
	Territory enums.Territory
	Phone     *string
}

// GrantRoleInput assigns a secondary role, optionally time-boxed.
type GrantRoleInput struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	ExpiresAt *time.Time
}

// ProfileFrom flattens a user row into its public projection. Expired
// secondary grants are omitted.
func ProfileFrom(user *models.User, now time.Time) Profile {
	profile := Profile{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        user.Role,
		Status:      user.Status,
		Territory:   user.Territory,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	for _, grant := range user.SecondaryRoles {
		if grant.Active(now) {
			profile.ExtraRoles = append(profile.ExtraRoles, grant.Role)
		}
	}
	return profile
}
