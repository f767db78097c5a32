// Package domain holds the currency record. Rates are relative to the base currency, whose rate is
// normally 1.
package domain

import (
	"strings"
	"time"

	"storefront/backend/internal/platform/errs"
)

// Currency is one entry of the rate table. At most one currency is the base.
type Currency struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Symbol    string    `json:"symbol"`
	Rate      float64   `json:"rate"`
	IsBase    bool      `json:"isBase"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeCode trims and upper-cases an ISO 4217 code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks code, symbol and rate. Code is expected to be normalised.
func (c *Currency) Validate() error {
	if len(c.Code) != 3 {
		return errs.Invalid("code", "must be 3 letters")
	}
	for _, r := range c.Code {
		if r < 'A' || r > 'Z' {
			return errs.Invalid("code", "must be 3 letters")
		}
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return errs.Required("symbol")
	}
	if !(c.Rate > 0) {
		return errs.Invalid("rate", "must be greater than 0")
	}
	return nil
}

// Patch holds the optional fields of a currency update.
type Patch struct {
	Code     *string  `json:"code,omitempty"`
	Symbol   *string  `json:"symbol,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	IsBase   *bool    `json:"isBase,omitempty"`
	IsActive *bool    `json:"isActive,omitempty"`
}

// Apply returns c with the set fields of p and UpdatedAt at.
func (p Patch) Apply(c Currency, at time.Time) Currency {
	if p.Code != nil {
		c.Code = NormalizeCode(*p.Code)
	}
	if p.Symbol != nil {
		c.Symbol = *p.Symbol
	}
	if p.Rate != nil {
		c.Rate = *p.Rate
	}
	if p.IsBase != nil {
		c.IsBase = *p.IsBase
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	c.UpdatedAt = at
	return c
}
