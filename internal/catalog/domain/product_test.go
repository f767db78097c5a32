package domain

import (
	"errors"
	"testing"
	"time"

	"storefront/backend/internal/platform/errs"
)

func validProduct() Product {
	return Product{Name: "Chechia", CategoryID: "hats", Currency: "TND", Price: 45, UnitPrice: 20, StockQuantity: 12, IsActive: true}
}

func TestLevelOf(t *testing.T) {
	testCases := []struct {
		qty  int
		want StockLevel
	}{
		{-1, StockOut},
		{0, StockOut},
		{1, StockLow},
		{LowStockThreshold, StockLow},
		{LowStockThreshold + 1, StockOK},
	}
	for _, tc := range testCases {
		if got := LevelOf(tc.qty); got != tc.want {
			t.Errorf("LevelOf(%d) = %q, want %q", tc.qty, got, tc.want)
		}
	}
}

func TestProductVisibleAt(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	p := validProduct()
	if !p.VisibleAt(now) {
		t.Error("active product without availability date should be visible")
	}
	p.AvailableDate = &later
	if p.VisibleAt(now) {
		t.Error("product available later should be hidden")
	}
	if !p.VisibleAt(later) {
		t.Error("product should be visible from its availability date")
	}
	p.AvailableDate = nil
	p.IsActive = false
	if p.VisibleAt(now) {
		t.Error("inactive product should be hidden")
	}
}

func TestProductValidate(t *testing.T) {
	testCases := []struct {
		name  string
		edit  func(*Product)
		field string
	}{
		{"name", func(p *Product) { p.Name = " " }, "name"},
		{"category", func(p *Product) { p.CategoryID = "" }, "categoryId"},
		{"currency", func(p *Product) { p.Currency = "DINAR" }, "currency"},
		{"price", func(p *Product) { p.Price = -1 }, "price"},
		{"unit price", func(p *Product) { p.UnitPrice = -0.5 }, "unitPrice"},
		{"stock", func(p *Product) { p.StockQuantity = -3 }, "stockQuantity"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct()
			tc.edit(&p)
			var ve *errs.ValidationError
			if err := p.Validate(); !errors.As(err, &ve) || ve.Field != tc.field {
				t.Errorf("Validate() = %v, want invalid %s", err, tc.field)
			}
		})
	}
	p := validProduct()
	if err := p.Validate(); err != nil {
		t.Errorf("valid product: %v", err)
	}
}

func TestProductPatchApply(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	name, cur, inactive := "Chechia rouge", " eur ", false
	p := validProduct()
	p.ID = "p1"

	got := ProductPatch{Name: &name, Currency: &cur, IsActive: &inactive}.Apply(p, at)
	if got.ID != "p1" || got.Name != name || got.Currency != "EUR" || got.IsActive {
		t.Errorf("Apply = %+v", got)
	}
	if got.StockQuantity != p.StockQuantity {
		t.Errorf("stock = %d, patch must not change stock", got.StockQuantity)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, at)
	}
}

func TestErrInsufficientStockIsConflict(t *testing.T) {
	if !errors.Is(ErrInsufficientStock, errs.ErrConflict) {
		t.Error("ErrInsufficientStock should match errs.ErrConflict")
	}
}
