package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/preferences/domain"
)

func TestMenu_DefaultsAndCorruptFallback(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	s := NewService(store)

	menu, err := s.Menu(ctx)
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	if len(menu.HiddenItems) != 0 || menu.HiddenItems == nil {
		t.Errorf("default hidden = %v", menu.HiddenItems)
	}

	_ = store.SetString(ctx, kvstore.KeyMenuPreferences, "{not json")
	menu, err = s.Menu(ctx)
	if err != nil {
		t.Fatalf("Menu corrupt: %v", err)
	}
	if len(menu.HiddenItems) != 0 {
		t.Errorf("corrupt hidden = %v, want defaults", menu.HiddenItems)
	}
}

func TestToggleItemAndReorder(t *testing.T) {
	ctx := context.Background()
	s := NewService(kvstore.NewMemory())

	hidden, err := s.ToggleItem(ctx, "orders")
	if err != nil {
		t.Fatalf("ToggleItem: %v", err)
	}
	if !slices.Equal(hidden, []string{"orders"}) {
		t.Errorf("hidden = %v", hidden)
	}
	_, _ = s.ToggleItem(ctx, "wishlist")
	if err := s.Reorder(ctx, []string{"wishlist", "cart"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	hidden, _ = s.ToggleItem(ctx, "orders")
	if !slices.Equal(hidden, []string{"wishlist"}) {
		t.Errorf("hidden after untoggle = %v", hidden)
	}
	menu, _ := s.Menu(ctx)
	if !slices.Equal(menu.CustomOrder, []string{"wishlist", "cart"}) {
		t.Errorf("order = %v", menu.CustomOrder)
	}
	if !menu.IsHidden("wishlist") || menu.IsHidden("orders") {
		t.Errorf("IsHidden wrong for %+v", menu)
	}
	if _, err := s.ToggleItem(ctx, " "); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("blank key err = %v", err)
	}
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	s := NewService(store)

	if mode, _ := s.Theme(ctx); mode != domain.ThemeLight {
		t.Errorf("default theme = %q", mode)
	}
	_ = store.SetString(ctx, kvstore.KeyThemePreference, "neon")
	if mode, _ := s.Theme(ctx); mode != domain.ThemeLight {
		t.Errorf("unknown stored theme = %q, want light", mode)
	}
	if err := s.SetTheme(ctx, "neon"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("SetTheme invalid err = %v", err)
	}
	_ = s.SetTheme(ctx, domain.ThemeCustom)
	next, err := s.ToggleTheme(ctx)
	if err != nil || next != domain.ThemeLight {
		t.Errorf("ToggleTheme = %q, %v, want light", next, err)
	}
}

func TestColors(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	s := NewService(store)

	c, err := s.SetColor(ctx, "primary", "#112233")
	if err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	if c.Primary != "#112233" || c.Surface != domain.DefaultColors().Surface {
		t.Errorf("colors = %+v", c)
	}
	got, _ := s.Colors(ctx)
	if got != c {
		t.Errorf("Colors = %+v, want %+v", got, c)
	}
	_ = store.SetString(ctx, kvstore.KeyCustomColors, `{"primary":"#000000"}`)
	got, _ = s.Colors(ctx)
	if got.Primary != "#000000" || got.Secondary != domain.DefaultColors().Secondary {
		t.Errorf("partial blob colors = %+v", got)
	}
	_ = store.SetString(ctx, kvstore.KeyCustomColors, `[`)
	if got, err := s.Colors(ctx); err != nil || got != domain.DefaultColors() {
		t.Errorf("corrupt colors = %+v, %v", got, err)
	}
}

func TestLanguage(t *testing.T) {
	ctx := context.Background()
	s := NewService(kvstore.NewMemory())

	if lang, _ := s.Language(ctx); lang != "en" {
		t.Errorf("default language = %q", lang)
	}
	if err := s.SetLanguage(ctx, " FR "); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if lang, _ := s.Language(ctx); lang != "fr" {
		t.Errorf("language = %q, want fr", lang)
	}
	if err := s.SetLanguage(ctx, "xx"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unsupported err = %v", err)
	}
}
