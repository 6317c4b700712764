package enums

import "fmt"

// Permission identifies one gated back-office action.
type Permission string

const (
	PermissionOrdersRead     Permission = "orders:read"
	PermissionOrdersCancel   Permission = "orders:cancel"
	PermissionOrdersConfirm  Permission = "orders:confirm"
	PermissionOrdersShip     Permission = "orders:ship"
	PermissionCatalogWrite   Permission = "catalog:write"
	PermissionStockAdjust    Permission = "stock:adjust"
	PermissionReviewModerate Permission = "reviews:moderate"
	PermissionUsersManage    Permission = "users:manage"
)

var validPermissions = []Permission{
	PermissionOrdersRead,
	PermissionOrdersCancel,
	PermissionOrdersConfirm,
	PermissionOrdersShip,
	PermissionCatalogWrite,
	PermissionStockAdjust,
	PermissionReviewModerate,
	PermissionUsersManage,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}
