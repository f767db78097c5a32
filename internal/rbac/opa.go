package rbac

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.storefront.rbac.allow"

const regoPolicy = `package storefront.rbac

role_permissions := {
	"admin": {
		"view_catalog", "view_product_details", "manage_products", "add_to_cart", "checkout",
		"view_my_orders", "manage_orders", "track_order", "view_analytics", "manage_settings",
		"manage_stock", "manage_users"
	},
	"gestionnaire_de_stock": {
		"view_catalog", "view_product_details", "manage_products", "manage_stock", "manage_orders",
		"view_analytics"
	},
	"user": {
		"view_catalog", "view_product_details", "add_to_cart", "checkout", "view_my_orders", "track_order"
	},
	"anonyme": {"view_catalog", "view_product_details"}
}

known if role_permissions[lower(input.role)]

role = lower(input.role) if known

role = "anonyme" if not known

default allow := false

allow if input.permission in role_permissions[role]
`

// OPAChecker evaluates permissions with an in-process OPA Rego policy. When evaluation fails it
// falls back to the static table.
type OPAChecker struct {
	query    rego.PreparedEvalQuery
	fallback Static
}

// NewOPAChecker compiles the role policy.
func NewOPAChecker(ctx context.Context) (*OPAChecker, error) {
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("rbac.rego", regoPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: compile policy: %w", err)
	}
	return &OPAChecker{query: q}, nil
}

// Allowed reports whether role holds permission.
func (c *OPAChecker) Allowed(ctx context.Context, role, permission string) bool {
	allowed, err := c.eval(ctx, role, permission)
	if err != nil {
		log.Printf("rbac: policy evaluation failed, using static table: %v", err)
		return c.fallback.Allowed(ctx, role, permission)
	}
	return allowed
}

func (c *OPAChecker) eval(ctx context.Context, role, permission string) (bool, error) {
	rs, err := c.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":       role,
		"permission": permission,
	}))
	if err != nil {
		return false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy result is %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck evaluates one known decision to verify the engine works.
func (c *OPAChecker) HealthCheck(ctx context.Context) error {
	allowed, err := c.eval(ctx, RoleAdmin, ManageUsers)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("rbac: admin denied %s", ManageUsers)
	}
	return nil
}
