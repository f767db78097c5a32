// Package rbac answers whether a role holds a permission. Roles that are empty or unknown evaluate as
// anonyme.
package rbac

import (
	"context"
	"strings"
)

// Roles.
const (
	RoleAdmin        = "admin"
	RoleUser         = "user"
	RoleStockManager = "gestionnaire_de_stock"
	RoleAnonyme      = "anonyme"
)

// Permissions.
const (
	ViewCatalog        = "view_catalog"
	ManageProducts     = "manage_products"
	ViewProductDetails = "view_product_details"
	AddToCart          = "add_to_cart"
	Checkout           = "checkout"
	ViewMyOrders       = "view_my_orders"
	ManageOrders       = "manage_orders"
	TrackOrder         = "track_order"
	ViewAnalytics      = "view_analytics"
	ManageSettings     = "manage_settings"
	ManageStock        = "manage_stock"
	ManageUsers        = "manage_users"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		ViewCatalog, ViewProductDetails, ManageProducts, AddToCart, Checkout, ViewMyOrders,
		ManageOrders, TrackOrder, ViewAnalytics, ManageSettings, ManageStock, ManageUsers,
	},
	RoleStockManager: {ViewCatalog, ViewProductDetails, ManageProducts, ManageStock, ManageOrders, ViewAnalytics},
	RoleUser:         {ViewCatalog, ViewProductDetails, AddToCart, Checkout, ViewMyOrders, TrackOrder},
	RoleAnonyme:      {ViewCatalog, ViewProductDetails},
}

// Checker reports whether role holds permission.
type Checker interface {
	Allowed(ctx context.Context, role, permission string) bool
}

// NormalizeRole lower-cases role and maps unknown roles to anonyme.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if _, ok := rolePermissions[r]; ok {
		return r
	}
	return RoleAnonyme
}

// Static evaluates the built-in role table directly.
type Static struct{}

func (Static) Allowed(_ context.Context, role, permission string) bool {
	for _, p := range rolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// Permissions returns the permissions held by role.
func Permissions(role string) []string {
	return append([]string(nil), rolePermissions[NormalizeRole(role)]...)
}
