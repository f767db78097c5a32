// Package domain holds the product catalogue and stock movement types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"storefront/backend/internal/platform/errs"
)

// LowStockThreshold is the quantity at or below which a product counts as low on stock.
const LowStockThreshold = 10

// ErrInsufficientStock is returned when a stock decrease would take a product below zero.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", errs.ErrConflict)

// StockLevel classifies a stock quantity.
type StockLevel string

const (
	StockOut StockLevel = "out_of_stock"
	StockLow StockLevel = "low_stock"
	StockOK  StockLevel = "in_stock"
)

// LevelOf returns the stock level of quantity.
func LevelOf(quantity int) StockLevel {
	switch {
	case quantity <= 0:
		return StockOut
	case quantity <= LowStockThreshold:
		return StockLow
	}
	return StockOK
}

// Product is a catalogue entry. Price is what customers pay; UnitPrice is the wholesale cost.
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	UnitPrice     float64    `json:"unitPrice"`
	Currency      string     `json:"currency"`
	StockQuantity int        `json:"stockQuantity"`
	CategoryID    string     `json:"categoryId"`
	ImageURIs     []string   `json:"imageUris"`
	AvailableDate *time.Time `json:"availableDate,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// VisibleAt reports whether customers see p at now: active and past its availability date.
func (p *Product) VisibleAt(now time.Time) bool {
	return p.IsActive && (p.AvailableDate == nil || !p.AvailableDate.After(now))
}

// Validate checks required fields, prices and stock.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.Required("name")
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return errs.Required("categoryId")
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return errs.Invalid("currency", "must be a three-letter code")
	}
	if p.Price < 0 {
		return errs.Invalid("price", "must not be negative")
	}
	if p.UnitPrice < 0 {
		return errs.Invalid("unitPrice", "must not be negative")
	}
	if p.StockQuantity < 0 {
		return errs.Invalid("stockQuantity", "must not be negative")
	}
	return nil
}

// ProductPatch is a partial update. Nil fields are left unchanged. Stock is changed through
// adjustments only.
type ProductPatch struct {
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	UnitPrice     *float64   `json:"unitPrice,omitempty"`
	Currency      *string    `json:"currency,omitempty"`
	CategoryID    *string    `json:"categoryId,omitempty"`
	ImageURIs     []string   `json:"imageUris,omitempty"`
	AvailableDate *time.Time `json:"availableDate,omitempty"`
	IsActive      *bool      `json:"isActive,omitempty"`
}

// Apply returns a copy of p with the patch applied and UpdatedAt set to at.
func (pt ProductPatch) Apply(p Product, at time.Time) Product {
	set(&p.Name, pt.Name)
	set(&p.Description, pt.Description)
	set(&p.Price, pt.Price)
	set(&p.UnitPrice, pt.UnitPrice)
	if pt.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*pt.Currency))
	}
	set(&p.CategoryID, pt.CategoryID)
	if pt.ImageURIs != nil {
		p.ImageURIs = append([]string(nil), pt.ImageURIs...)
	}
	if pt.AvailableDate != nil {
		d := pt.AvailableDate.UTC()
		p.AvailableDate = &d
	}
	set(&p.IsActive, pt.IsActive)
	p.UpdatedAt = at
	return p
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// InventoryLog records one stock movement. Change is signed.
type InventoryLog struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Change      int       `json:"change"`
	Reason      string    `json:"reason"`
	PerformedBy string    `json:"performedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StockLine is a quantity of one product, as reserved by an order.
type StockLine struct {
	ProductID string
	Quantity  int
}
