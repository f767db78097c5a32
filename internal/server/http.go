// Package server assembles the HTTP router and the gRPC server.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"

	"storefront/backend/internal/audit"
	cataloghandler "storefront/backend/internal/catalog/handler"
	catalogservice "storefront/backend/internal/catalog/service"
	checkouthandler "storefront/backend/internal/checkout/handler"
	checkoutservice "storefront/backend/internal/checkout/service"
	currencyhandler "storefront/backend/internal/currency/handler"
	currencyservice "storefront/backend/internal/currency/service"
	"storefront/backend/internal/health"
	identityhandler "storefront/backend/internal/identity/handler"
	identityservice "storefront/backend/internal/identity/service"
	orderhandler "storefront/backend/internal/order/handler"
	orderservice "storefront/backend/internal/order/service"
	prefhandler "storefront/backend/internal/preferences/handler"
	prefservice "storefront/backend/internal/preferences/service"
	"storefront/backend/internal/rbac"
	"storefront/backend/internal/server/middleware"
	sessionhandler "storefront/backend/internal/session/handler"
	sessionservice "storefront/backend/internal/session/service"
	"storefront/backend/internal/telemetry"
	telemetryhandler "storefront/backend/internal/telemetry/handler"
	telemetryrepo "storefront/backend/internal/telemetry/repository"
	userhandler "storefront/backend/internal/user/handler"
	userrepo "storefront/backend/internal/user/repository"
)

// APIPrefix is where every service route is mounted. Health checks live at the root.
const APIPrefix = "/v1"

// Deps holds what the router mounts. Auth, Sessions and Tokens are required; a nil service leaves its
// routes unmounted.
type Deps struct {
	Auth     *identityservice.AuthService
	Sessions *sessionservice.Manager
	Tokens   middleware.TokenValidator

	Catalog     *catalogservice.Service
	Orders      *orderservice.Service
	Checkout    *checkoutservice.Service
	Currency    *currencyservice.Service
	Preferences *prefservice.Service
	Users       userrepo.Repository
	// TelemetryEvents serves events the worker stored. Only set with the Postgres record backend.
	TelemetryEvents telemetryrepo.Repository

	// Checker evaluates permissions. Nil uses the static role table.
	Checker rbac.Checker
	// AuditLogger records authenticated writes. Nil disables route auditing.
	AuditLogger audit.AuditLogger
	// Emitter receives http_request events. Nil disables request telemetry.
	Emitter telemetry.EventEmitter
	// Health backs /readyz. Nil reports ready with no checks.
	Health         *health.Checker
	TracerProvider trace.TracerProvider
	Clock          clockwork.Clock
}

// untracked routes emit no http_request telemetry.
var untracked = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// serviceAudited are "METHOD pattern" keys whose service writes its own audit entry.
var serviceAudited = map[string]bool{
	"POST " + APIPrefix + "/auth/logout":                 true,
	"PUT " + APIPrefix + "/addresses/{id}/default":       true,
	"PUT " + APIPrefix + "/payment-methods/{id}/default": true,
	"PUT " + APIPrefix + "/currencies/{id}/base":         true,
	"POST " + APIPrefix + "/inventory/{id}/adjustments":  true,
	"POST " + APIPrefix + "/orders":                      true,
	"POST " + APIPrefix + "/orders/{id}/cancel":          true,
	"PUT " + APIPrefix + "/orders/{id}/status":           true,
}

// NewRouter returns the HTTP handler for the whole API.
func NewRouter(deps Deps) http.Handler {
	checker := deps.Checker
	if checker == nil {
		checker = rbac.Static{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	checks := deps.Health
	if checks == nil {
		checks = health.NewChecker(0)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing(deps.TracerProvider))
	r.Use(middleware.ClientIP)
	r.Use(middleware.Telemetry(deps.Emitter, untracked))

	r.Get("/healthz", health.LiveHandler())
	r.Get("/readyz", checks.ReadyHandler())

	auth := middleware.Auth(deps.Tokens, deps.Sessions)
	authed := func(next http.Handler) http.Handler {
		return auth(middleware.Audit(deps.AuditLogger, serviceAudited)(next))
	}

	require := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(checker, permission)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		identityhandler.NewHandler(deps.Auth).Routes(r, authed)
		sessionhandler.NewHandler(deps.Sessions).Routes(r, auth)
		if deps.Preferences != nil {
			prefhandler.NewHandler(deps.Preferences).Routes(r)
		}
		if deps.Currency != nil {
			currencyhandler.NewHandler(deps.Currency).Routes(r, authed, middleware.RequirePermission(checker, rbac.ManageSettings))
		}
		if deps.Catalog != nil {
			cataloghandler.NewHandler(deps.Catalog).Routes(r, authed, require)
		}
		if deps.Orders != nil {
			orderhandler.NewHandler(deps.Orders).Routes(r, authed, require)
		}
		if deps.Checkout != nil {
			r.Group(func(r chi.Router) {
				r.Use(authed, middleware.RequirePermission(checker, rbac.Checkout))
				checkouthandler.NewHandler(deps.Checkout).Routes(r)
			})
		}
		if deps.Users != nil {
			userhandler.NewHandler(deps.Users, clock).Routes(r, authed, middleware.RequirePermission(checker, rbac.ManageUsers))
		}
		if deps.TelemetryEvents != nil {
			telemetryhandler.NewHandler(deps.TelemetryEvents).Routes(r, authed, middleware.RequirePermission(checker, rbac.ViewAnalytics))
		}
	})
	return r
}
