// Package service manages the currency rate table and converts amounts between currencies.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/currency/domain"
	"storefront/backend/internal/currency/repository"
	"storefront/backend/internal/platform/errs"
)

// AuditLogger records base currency changes. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// seed is the rate table installed on an empty store. Rates are relative to EUR.
var seed = []domain.Currency{
	{Code: "EUR", Symbol: "€", Rate: 1, IsBase: true, IsActive: true},
	{Code: "USD", Symbol: "$", Rate: 1.08, IsActive: true},
	{Code: "GBP", Symbol: "£", Rate: 0.86, IsActive: true},
	{Code: "TND", Symbol: "DT", Rate: 3.35, IsActive: true},
}

// Service wraps a currency Repository.
type Service struct {
	repo  repository.Repository
	clock clockwork.Clock
	audit AuditLogger
}

// NewService returns a currency service. clock and audit may be nil.
func NewService(repo repository.Repository, clock clockwork.Clock, audit AuditLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: repo, clock: clock, audit: audit}
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// SeedDefaults installs EUR (base), USD, GBP and TND when the table is empty. It returns how many
// currencies were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	now := s.now()
	for i, c := range seed {
		c.ID = "CUR-" + uuid.NewString()
		c.CreatedAt, c.UpdatedAt = now, now
		if _, err := s.repo.Create(ctx, &c); err != nil {
			return i, fmt.Errorf("currency: seed %s: %w", c.Code, err)
		}
	}
	log.Printf("currency: seeded %d default currencies", len(seed))
	return len(seed), nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Currency, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.ErrNotFound
	}
	return c, nil
}

// GetBase returns the base currency, or nil when none is marked.
func (s *Service) GetBase(ctx context.Context) (*domain.Currency, error) {
	return s.repo.GetBase(ctx)
}

// Add stores a new currency. The code is normalised and must be unused.
func (s *Service) Add(ctx context.Context, actorID string, in domain.Currency) (*domain.Currency, error) {
	now := s.now()
	c := in
	c.ID = "CUR-" + uuid.NewString()
	c.Code = domain.NormalizeCode(c.Code)
	c.CreatedAt, c.UpdatedAt = now, now
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cleared, err := s.repo.Create(ctx, &c)
	if err != nil {
		return nil, err
	}
	if c.IsBase {
		s.baseChanged(ctx, actorID, &c, cleared)
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, actorID, id string, patch domain.Patch) (*domain.Currency, error) {
	c, cleared, err := s.repo.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if patch.IsBase != nil && *patch.IsBase {
		s.baseChanged(ctx, actorID, c, cleared)
	}
	return c, nil
}

// SetBase makes the currency with id the base, clearing the previous base.
func (s *Service) SetBase(ctx context.Context, actorID, id string) (*domain.Currency, error) {
	yes := true
	return s.Update(ctx, actorID, id, domain.Patch{IsBase: &yes})
}

// Delete removes a currency. Deleting the base leaves the table without one.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Convert converts amount between two codes through the rate table: amount / from.rate * to.rate.
// Unknown codes are errs.ErrNotFound.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	src, err := s.byCode(ctx, from)
	if err != nil {
		return 0, err
	}
	dst, err := s.byCode(ctx, to)
	if err != nil {
		return 0, err
	}
	return amount / src.Rate * dst.Rate, nil
}

// Format renders a base-currency amount in code: the symbol followed by amount*rate with two decimals.
func (s *Service) Format(ctx context.Context, amount float64, code string) (string, error) {
	c, err := s.byCode(ctx, code)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%.2f", c.Symbol, amount*c.Rate), nil
}

func (s *Service) byCode(ctx context.Context, code string) (*domain.Currency, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("currency %q: %w", domain.NormalizeCode(code), errs.ErrNotFound)
	}
	return c, nil
}

func (s *Service) baseChanged(ctx context.Context, actorID string, c *domain.Currency, cleared []string) {
	if s.audit == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"id": c.ID, "code": c.Code, "cleared": cleared})
	s.audit.LogEvent(context.WithoutCancel(ctx), actorID, auditdomain.ActionDefaultChanged, "currency", string(meta))
}
