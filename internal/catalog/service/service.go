// Package service implements the product catalogue and stock management.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/catalog/domain"
	"storefront/backend/internal/catalog/repository"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/telemetry"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
)

// AuditLogger records stock adjustments. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for timestamps and availability checks.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithAuditLogger sets the audit logger for stock adjustments.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithEmitter sets the telemetry emitter for stock adjustments.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(s *Service) { s.emitter = e }
}

// Service serves the catalogue. Customers see visible products only; the management methods see all.
type Service struct {
	products repository.ProductRepository
	clock    clockwork.Clock
	audit    AuditLogger
	emitter  telemetry.EventEmitter
}

// NewService returns a catalogue service over products.
func NewService(products repository.ProductRepository, opts ...Option) *Service {
	s := &Service{products: products, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// ListVisible returns the products customers can see now, newest first.
func (s *Service) ListVisible(ctx context.Context) ([]*domain.Product, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := all[:0]
	for _, p := range all {
		if p.VisibleAt(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetVisible returns the product with id if customers can see it now.
func (s *Service) GetVisible(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.VisibleAt(s.now()) {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

// ListAll returns every product including inactive and scheduled ones.
func (s *Service) ListAll(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

// Get returns the product with id regardless of visibility.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

// Create stores a new product. Id and timestamps are assigned here.
func (s *Service) Create(ctx context.Context, in domain.Product) (*domain.Product, error) {
	now := s.now()
	p := in
	p.ID = "PRD-" + uuid.NewString()
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.ImageURIs = append([]string{}, in.ImageURIs...)
	if p.AvailableDate != nil {
		d := p.AvailableDate.UTC()
		p.AvailableDate = &d
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies patch to the product with id.
func (s *Service) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	return s.products.Update(ctx, id, patch, s.now())
}

// Delete removes the product with id. Its stock history is kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// AdjustStock adds change to the product's stock on behalf of actor and records the movement.
// A decrease below zero fails with domain.ErrInsufficientStock.
func (s *Service) AdjustStock(ctx context.Context, actor, productID string, change int, reason string) (*domain.Product, error) {
	if change == 0 {
		return nil, errs.Invalid("change", "must not be zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errs.Required("reason")
	}
	entry := &domain.InventoryLog{
		ID:          "LOG-" + uuid.NewString(),
		ProductID:   productID,
		Change:      change,
		Reason:      reason,
		PerformedBy: actor,
		CreatedAt:   s.now(),
	}
	p, err := s.products.AdjustStock(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.stockChanged(ctx, p, entry)
	return p, nil
}

// ListLogs returns stock movements, newest first. An empty productID lists all products.
func (s *Service) ListLogs(ctx context.Context, productID string) ([]*domain.InventoryLog, error) {
	return s.products.ListLogs(ctx, productID)
}

// Reserve takes lines out of stock for an order. Either every line is reserved or none is: lines
// already taken are put back when a later one fails.
func (s *Service) Reserve(ctx context.Context, actor, orderID string, lines []domain.StockLine) error {
	reason := "order " + orderID
	for i, l := range lines {
		if l.Quantity <= 0 {
			s.putBack(ctx, actor, reason+" rolled back", lines[:i])
			return errs.Invalid("quantity", "must be positive")
		}
		if _, err := s.AdjustStock(ctx, actor, l.ProductID, -l.Quantity, reason); err != nil {
			s.putBack(ctx, actor, reason+" rolled back", lines[:i])
			return fmt.Errorf("reserve %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// Release returns an order's lines to stock.
func (s *Service) Release(ctx context.Context, actor, orderID string, lines []domain.StockLine) error {
	reason := "order " + orderID + " cancelled"
	for _, l := range lines {
		if _, err := s.AdjustStock(ctx, actor, l.ProductID, l.Quantity, reason); err != nil {
			return fmt.Errorf("release %s: %w", l.ProductID, err)
		}
	}
	return nil
}

func (s *Service) putBack(ctx context.Context, actor, reason string, lines []domain.StockLine) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range lines {
		if _, err := s.AdjustStock(ctx, actor, l.ProductID, l.Quantity, reason); err != nil {
			log.Printf("catalog: put back %d of %s failed: %v", l.Quantity, l.ProductID, err)
		}
	}
}

// stockChanged is best-effort: audit and telemetry failures never fail the write.
func (s *Service) stockChanged(ctx context.Context, p *domain.Product, entry *domain.InventoryLog) {
	level := domain.LevelOf(p.StockQuantity)
	if entry.Change < 0 && level != domain.StockOK {
		log.Printf("catalog: product %s is %s (%d left)", p.ID, level, p.StockQuantity)
	}
	meta, _ := json.Marshal(map[string]any{
		"productId": p.ID, "change": entry.Change, "stock": p.StockQuantity, "level": level, "reason": entry.Reason,
	})
	if s.audit != nil {
		s.audit.LogEvent(context.WithoutCancel(ctx), entry.PerformedBy, auditdomain.ActionStockAdjusted, "product", string(meta))
	}
	if s.emitter != nil {
		telemetry.EmitAsync(s.emitter, &telemetrydomain.Event{
			EventType: telemetrydomain.EventStockAdjusted,
			Source:    "catalog",
			UserID:    entry.PerformedBy,
			Metadata:  meta,
			CreatedAt: entry.CreatedAt,
		})
	}
}
