package repository

import (
	"context"

	"storefront/backend/internal/telemetry/domain"
)

// Repository defines persistence for consumed telemetry events.
type Repository interface {
	// Write stores one event.
	Write(ctx context.Context, e *domain.Event) error
	// ListByDevice returns the newest events of one installation.
	ListByDevice(ctx context.Context, deviceID string, limit, offset int32) ([]*domain.Event, error)
}
