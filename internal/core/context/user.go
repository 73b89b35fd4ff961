// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Roles known to the access gate.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManagement = "management"
	RoleSupervisor = "supervisor"
)

// Permissions consumed by the stock access gate.
const (
	PermStockManage        = "stock.manage"
	PermStockLocationsView = "stock.locations.view"
	PermStockMovementsView = "stock.movements.view"
	PermStockKeepersView   = "stock.keepers.view"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID      string
	TenantID    string
	Email       string
	Roles       []string
	Permissions []string
	SessionID   string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetTenantID returns tenant ID from context or empty string.
func GetTenantID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.TenantID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks if user carries a permission.
func HasPermission(ctx context.Context, perm string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if user carries at least one of the permissions.
func HasAnyPermission(ctx context.Context, perms ...string) bool {
	for _, p := range perms {
		if HasPermission(ctx, p) {
			return true
		}
	}
	return false
}
