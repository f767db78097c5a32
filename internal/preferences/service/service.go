// Package service reads and writes the display preferences of this installation.
// Unreadable stored values fall back to the defaults.
package service

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"

	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/preferences/domain"
)

// Service serialises read-modify-write sequences on the preference keys.
type Service struct {
	store *kvstore.Store
	mu    sync.Mutex
}

func NewService(store *kvstore.Store) *Service {
	return &Service{store: store}
}

// Menu returns the stored menu preferences, or the defaults when none or unreadable.
func (s *Service) Menu(ctx context.Context) (domain.Menu, error) {
	menu := domain.DefaultMenu()
	ok, err := s.store.GetJSON(ctx, kvstore.KeyMenuPreferences, &menu)
	if errors.Is(err, kvstore.ErrCorrupt) {
		log.Printf("preferences: ignoring unreadable menu preferences: %v", err)
		return domain.DefaultMenu(), nil
	}
	if err != nil || !ok {
		return domain.DefaultMenu(), err
	}
	if menu.HiddenItems == nil {
		menu.HiddenItems = []string{}
	}
	if menu.CustomOrder == nil {
		menu.CustomOrder = []string{}
	}
	return menu, nil
}

func (s *Service) SaveMenu(ctx context.Context, menu domain.Menu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SetJSON(ctx, kvstore.KeyMenuPreferences, menu)
}

// ToggleItem hides key when visible and shows it when hidden. Returns the hidden items.
func (s *Service) ToggleItem(ctx context.Context, key string) ([]string, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errs.Required("key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	menu, err := s.Menu(ctx)
	if err != nil {
		return nil, err
	}
	if i := slices.Index(menu.HiddenItems, key); i >= 0 {
		menu.HiddenItems = slices.Delete(menu.HiddenItems, i, i+1)
	} else {
		menu.HiddenItems = append(menu.HiddenItems, key)
	}
	if err := s.store.SetJSON(ctx, kvstore.KeyMenuPreferences, menu); err != nil {
		return nil, err
	}
	return menu.HiddenItems, nil
}

// Reorder replaces the custom order, keeping the hidden items.
func (s *Service) Reorder(ctx context.Context, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	menu, err := s.Menu(ctx)
	if err != nil {
		return err
	}
	if order == nil {
		order = []string{}
	}
	menu.CustomOrder = order
	return s.store.SetJSON(ctx, kvstore.KeyMenuPreferences, menu)
}

// Theme returns the stored theme mode, or the default when missing or unknown.
func (s *Service) Theme(ctx context.Context) (domain.ThemeMode, error) {
	v, ok, err := s.store.GetString(ctx, kvstore.KeyThemePreference)
	if err != nil {
		return domain.DefaultTheme, err
	}
	mode := domain.ThemeMode(v)
	if !ok || !mode.Valid() {
		return domain.DefaultTheme, nil
	}
	return mode, nil
}

func (s *Service) SetTheme(ctx context.Context, mode domain.ThemeMode) error {
	if !mode.Valid() {
		return errs.Invalid("mode", "unknown theme mode")
	}
	return s.store.SetString(ctx, kvstore.KeyThemePreference, string(mode))
}

// ToggleTheme moves to the next mode in the cycle and returns it.
func (s *Service) ToggleTheme(ctx context.Context) (domain.ThemeMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := cur.Next()
	if err := s.store.SetString(ctx, kvstore.KeyThemePreference, string(next)); err != nil {
		return "", err
	}
	return next, nil
}

// Colors returns the custom palette. Slots missing from the stored blob keep their defaults.
func (s *Service) Colors(ctx context.Context) (domain.Colors, error) {
	colors := domain.DefaultColors()
	_, err := s.store.GetJSON(ctx, kvstore.KeyCustomColors, &colors)
	if errors.Is(err, kvstore.ErrCorrupt) {
		log.Printf("preferences: ignoring unreadable custom colours: %v", err)
		return domain.DefaultColors(), nil
	}
	if err != nil {
		return domain.DefaultColors(), err
	}
	return colors, nil
}

// SetColor sets one palette slot and returns the full palette.
func (s *Service) SetColor(ctx context.Context, slot, color string) (domain.Colors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.Colors(ctx)
	if err != nil {
		return cur, err
	}
	next, err := cur.WithColor(slot, color)
	if err != nil {
		return cur, err
	}
	if err := s.store.SetJSON(ctx, kvstore.KeyCustomColors, next); err != nil {
		return cur, err
	}
	return next, nil
}

// Language returns the stored language code, or the default.
func (s *Service) Language(ctx context.Context) (string, error) {
	v, ok, err := s.store.GetString(ctx, kvstore.KeyLanguage)
	if err != nil {
		return domain.DefaultLanguage, err
	}
	if !ok || !domain.SupportedLanguage(v) {
		return domain.DefaultLanguage, nil
	}
	return v, nil
}

func (s *Service) SetLanguage(ctx context.Context, code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if !domain.SupportedLanguage(code) {
		return errs.Invalid("language", "unsupported language")
	}
	return s.store.SetString(ctx, kvstore.KeyLanguage, code)
}
