package domain

import "time"

// Actions recorded by the service code paths.
const (
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionRegister       = "register"
	ActionSessionExpired = "session_expired"
	ActionDefaultChanged = "default_changed"

	ActionStockAdjusted      = "stock_adjusted"
	ActionOrderPlaced        = "order_placed"
	ActionOrderStatusChanged = "order_status_changed"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
