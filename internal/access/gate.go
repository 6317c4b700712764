package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
)

// Actor is the authenticated identity a request acts as. ClaimedRole is the
// role asserted by the caller's token; the gate verifies it against the
// account's effective roles before any side effect runs.
type Actor struct {
	UserID      uuid.UUID
	ClaimedRole enums.UserRole
	Territory   enums.Territory
}

// Gate resolves whether an actor may perform a gated operation. Every
// failure mode is reported as Forbidden so callers cannot distinguish a
// missing account from an insufficient role.
type Gate struct {
	repo  Repository
	table *PermissionTable
	now   func() time.Time
}

// NewGate builds the authorization gate.
func NewGate(repo Repository, table *PermissionTable) (*Gate, error) {
	if repo == nil {
		return nil, fmt.Errorf("access repository required")
	}
	if table == nil {
		return nil, fmt.Errorf("permission table required")
	}
	return &Gate{repo: repo, table: table, now: time.Now}, nil
}

// Authorize checks the actor against the permission. It loads the account,
// requires it to be active, requires the claimed role to be among the
// account's effective roles (primary plus unexpired secondary grants), and
// requires the claimed role to carry the permission.
func (g *Gate) Authorize(ctx context.Context, actor Actor, perm enums.Permission) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor identity missing")
	}
	if !actor.ClaimedRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role claim")
	}

	user, err := g.repo.FindUserWithGrants(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	if user.Status != enums.AccountStatusActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is not active")
	}

	now := g.now()
	if !hasEffectiveRole(user, actor.ClaimedRole, now) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role claim not granted to account")
	}

	if !g.table.Allows(actor.ClaimedRole, perm) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role lacks permission")
	}
	return nil
}

func hasEffectiveRole(user *models.User, claimed enums.UserRole, now time.Time) bool {
	if user.Role == claimed {
		return true
	}
	for _, grant := range user.SecondaryRoles {
		if grant.Role == claimed && grant.Active(now) {
			return true
		}
	}
	return false
}
