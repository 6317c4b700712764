package access

import (
	"github.com/caribcell/caribcell-backend/pkg/enums"
)

// PermissionTable is the role-to-permission mapping consulted by the gate.
// It is built once at process start and never mutated afterwards.
type PermissionTable struct {
	grants map[enums.UserRole]map[enums.Permission]struct{}
}

// NewPermissionTable builds the canonical role grants.
func NewPermissionTable() *PermissionTable {
	byRole := map[enums.UserRole][]enums.Permission{
		enums.UserRoleCustomer: {},
		enums.UserRoleAgent: {
			enums.PermissionOrdersRead,
			enums.PermissionOrdersCancel,
		},
		enums.UserRoleModerator: {
			enums.PermissionOrdersRead,
			enums.PermissionReviewModerate,
		},
		enums.UserRoleManager: {
			enums.PermissionOrdersRead,
			enums.PermissionOrdersCancel,
			enums.PermissionOrdersConfirm,
			enums.PermissionOrdersShip,
			enums.PermissionCatalogWrite,
			enums.PermissionStockAdjust,
			enums.PermissionReviewModerate,
		},
		enums.UserRoleAdmin: {
			enums.PermissionOrdersRead,
			enums.PermissionOrdersCancel,
			enums.PermissionOrdersConfirm,
			enums.PermissionOrdersShip,
			enums.PermissionCatalogWrite,
			enums.PermissionStockAdjust,
			enums.PermissionReviewModerate,
			enums.PermissionUsersManage,
		},
	}

	grants := make(map[enums.UserRole]map[enums.Permission]struct{}, len(byRole))
	for role, perms := range byRole {
		set := make(map[enums.Permission]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		grants[role] = set
	}
	return &PermissionTable{grants: grants}
}

// Allows reports whether the role carries the permission.
func (t *PermissionTable) Allows(role enums.UserRole, perm enums.Permission) bool {
	if t == nil {
		return false
	}
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// PermissionsFor returns the permissions a role carries, for introspection
// endpoints. The returned slice is a copy.
func (t *PermissionTable) PermissionsFor(role enums.UserRole) []enums.Permission {
	if t == nil {
		return nil
	}
	set, ok := t.grants[role]
	if !ok {
		return nil
	}
	perms := make([]enums.Permission, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	return perms
}
