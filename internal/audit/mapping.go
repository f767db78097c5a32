package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides: setting a default is audited as default_changed rather than a plain update.
var routeOverrides = map[string]ActionResource{
	"PUT /v1/addresses/{id}/default":       {Action: "default_changed", Resource: "address"},
	"PUT /v1/payment-methods/{id}/default": {Action: "default_changed", Resource: "payment_method"},
	"PUT /v1/currencies/{id}/base":         {Action: "default_changed", Resource: "currency"},
}

// ParseRoute returns action and resource for an HTTP method and chi route pattern
// (e.g. POST /v1/addresses -> create address).
// Resource is the first path segment after the version, singularised; dashes become underscores.
func ParseRoute(method, pattern string) ActionResource {
	if ar, ok := routeOverrides[method+" "+pattern]; ok {
		return ar
	}
	segs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(segs) > 0 && segs[0] == "v1" {
		segs = segs[1:]
	}
	if len(segs) == 0 || segs[0] == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource := singular(strings.ReplaceAll(segs[0], "-", "_"))
	hasID := len(segs) > 1 && strings.HasPrefix(segs[1], "{")
	return ActionResource{Action: methodToAction(method, hasID), Resource: resource}
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "sses"):
		return strings.TrimSuffix(s, "es")
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

func methodToAction(method string, hasID bool) string {
	switch method {
	case http.MethodGet:
		if hasID {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
