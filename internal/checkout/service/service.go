// Package service implements checkout record management for signed-in users: addresses, payment
// methods and the delivery method catalogue.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/checkout/repository"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/telemetry"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
)

// AuditLogger records default changes. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for record timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithAuditLogger sets the audit logger for default changes.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithEmitter sets the telemetry emitter for default changes.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(s *Service) { s.emitter = e }
}

// Service scopes every operation to the calling user. Records owned by someone else are reported as
// errs.ErrNotFound.
type Service struct {
	addresses repository.AddressRepository
	payments  repository.PaymentMethodRepository
	clock     clockwork.Clock
	audit     AuditLogger
	emitter   telemetry.EventEmitter
}

// NewService returns a checkout service over the given repositories.
func NewService(addresses repository.AddressRepository, payments repository.PaymentMethodRepository, opts ...Option) *Service {
	s := &Service{addresses: addresses, payments: payments, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// ListAddresses returns the user's addresses, newest first.
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]*domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// GetAddress returns the user's address with id.
func (s *Service) GetAddress(ctx context.Context, userID, id string) (*domain.Address, error) {
	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return a, nil
}

// DefaultAddress returns the user's default address for t, or nil when there is none.
func (s *Service) DefaultAddress(ctx context.Context, userID string, t domain.AddressType) (*domain.Address, error) {
	if !t.Valid() {
		return nil, errs.Invalid("type", "must be shipping, billing or both")
	}
	return s.addresses.GetDefault(ctx, userID, t)
}

// AddAddress stores a new address for the user. Id and timestamps are assigned here.
func (s *Service) AddAddress(ctx context.Context, userID string, in domain.Address) (*domain.Address, error) {
	now := s.now()
	a := in
	a.ID = "ADDR-" + uuid.NewString()
	a.UserID = userID
	a.CreatedAt, a.UpdatedAt = now, now
	if err := a.Validate(); err != nil {
		return nil, err
	}
	cleared, err := s.addresses.Create(ctx, &a)
	if err != nil {
		return nil, err
	}
	if a.IsDefault {
		s.defaultChanged(ctx, userID, "address", a.ID, cleared)
	}
	return &a, nil
}

// UpdateAddress applies patch to the user's address with id.
func (s *Service) UpdateAddress(ctx context.Context, userID, id string, patch domain.AddressPatch) (*domain.Address, error) {
	if _, err := s.GetAddress(ctx, userID, id); err != nil {
		return nil, err
	}
	a, cleared, err := s.addresses.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if patch.IsDefault != nil && *patch.IsDefault {
		s.defaultChanged(ctx, userID, "address", a.ID, cleared)
	}
	return a, nil
}

// SetDefaultAddress marks the user's address with id as default, clearing overlapping defaults.
func (s *Service) SetDefaultAddress(ctx context.Context, userID, id string) (*domain.Address, error) {
	yes := true
	return s.UpdateAddress(ctx, userID, id, domain.AddressPatch{IsDefault: &yes})
}

// DeleteAddress removes the user's address with id. Deleting the default leaves the user without one.
func (s *Service) DeleteAddress(ctx context.Context, userID, id string) error {
	if _, err := s.GetAddress(ctx, userID, id); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, id)
}

// ListPaymentMethods returns the user's payment methods, newest first.
func (s *Service) ListPaymentMethods(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	return s.payments.ListByUser(ctx, userID)
}

// GetPaymentMethod returns the user's payment method with id.
func (s *Service) GetPaymentMethod(ctx context.Context, userID, id string) (*domain.PaymentMethod, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

// DefaultPaymentMethod returns the user's default payment method, or nil when there is none.
func (s *Service) DefaultPaymentMethod(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	return s.payments.GetDefault(ctx, userID)
}

// AddPaymentMethod stores a new payment method for the user. Id and timestamps are assigned here.
func (s *Service) AddPaymentMethod(ctx context.Context, userID string, in domain.PaymentMethod) (*domain.PaymentMethod, error) {
	now := s.now()
	p := in
	p.ID = "PM-" + uuid.NewString()
	p.UserID = userID
	p.CreatedAt, p.UpdatedAt = now, now
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cleared, err := s.payments.Create(ctx, &p)
	if err != nil {
		return nil, err
	}
	if p.IsDefault {
		s.defaultChanged(ctx, userID, "payment_method", p.ID, cleared)
	}
	return &p, nil
}

// UpdatePaymentMethod applies patch to the user's payment method with id.
func (s *Service) UpdatePaymentMethod(ctx context.Context, userID, id string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	if _, err := s.GetPaymentMethod(ctx, userID, id); err != nil {
		return nil, err
	}
	p, cleared, err := s.payments.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if patch.IsDefault != nil && *patch.IsDefault {
		s.defaultChanged(ctx, userID, "payment_method", p.ID, cleared)
	}
	return p, nil
}

// SetDefaultPaymentMethod marks the user's payment method with id as default and clears the previous one.
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, userID, id string) (*domain.PaymentMethod, error) {
	yes := true
	return s.UpdatePaymentMethod(ctx, userID, id, domain.PaymentMethodPatch{IsDefault: &yes})
}

// DeletePaymentMethod removes the user's payment method with id.
func (s *Service) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	if _, err := s.GetPaymentMethod(ctx, userID, id); err != nil {
		return err
	}
	return s.payments.Delete(ctx, id)
}

// DeliveryMethods returns the static delivery catalogue.
func (s *Service) DeliveryMethods() []domain.DeliveryMethod {
	return domain.DeliveryMethods()
}

// defaultChanged is best-effort: audit and telemetry failures never fail the write.
func (s *Service) defaultChanged(ctx context.Context, userID, resource, id string, cleared []string) {
	meta, _ := json.Marshal(map[string]any{"id": id, "cleared": cleared})
	if s.audit != nil {
		s.audit.LogEvent(context.WithoutCancel(ctx), userID, auditdomain.ActionDefaultChanged, resource, string(meta))
	}
	if s.emitter != nil {
		telemetry.EmitAsync(s.emitter, &telemetrydomain.Event{
			EventType: telemetrydomain.EventDefaultChanged,
			Source:    "checkout",
			UserID:    userID,
			Metadata:  meta,
			CreatedAt: s.now(),
		})
	}
}
