package domain

import "time"

// Event types emitted by the service and transport code paths.
const (
	EventSessionStarted = "session_started"
	EventSessionCleared = "session_cleared"
	EventSessionExpired = "session_expired"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventRegister       = "register"
	EventDefaultChanged = "default_changed"
	EventStockAdjusted  = "stock_adjusted"
	EventOrderPlaced    = "order_placed"
	EventOrderStatus    = "order_status_changed"
	EventHTTPRequest    = "http_request"
	EventGRPCRequest    = "grpc_request"
)

// Event is a telemetry event for one installation (optional user/device).
type Event struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	UserID    string    `json:"user_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	Metadata  []byte    `json:"metadata,omitempty"` // JSON
	CreatedAt time.Time `json:"created_at"`
}
