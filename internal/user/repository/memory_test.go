package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/user/domain"
)

func newUser(id, email string, created time.Time) *domain.User {
	return &domain.User{
		ID: id, Name: "User " + id, Email: email, Role: domain.RoleUser, Status: domain.UserStatusPending,
		PasswordHash: "hash", CreatedAt: created, UpdatedAt: created,
	}
}

func TestMemoryRepository_CreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()
	if err := r.Create(ctx, newUser("u1", "a@example.com", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := r.Create(ctx, newUser("u2", "a@example.com", now))
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Errorf("Create duplicate err = %v, want ErrDuplicate", err)
	}
}

func TestMemoryRepository_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, newUser("u1", "a@example.com", time.Now()))

	u, err := r.GetByEmail(ctx, "a@example.com")
	if err != nil || u == nil {
		t.Fatalf("GetByEmail = %v, %v", u, err)
	}
	u.Name = "changed"
	again, _ := r.GetByID(ctx, "u1")
	if again.Name == "changed" {
		t.Error("mutating a returned user changed the stored user")
	}
	missing, err := r.GetByID(ctx, "nope")
	if missing != nil || err != nil {
		t.Errorf("GetByID missing = %v, %v, want nil, nil", missing, err)
	}
}

func TestMemoryRepository_ListNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = r.Create(ctx, newUser("u1", "1@example.com", base))
	_ = r.Create(ctx, newUser("u2", "2@example.com", base.Add(time.Hour)))
	_ = r.Create(ctx, newUser("u3", "3@example.com", base.Add(2*time.Hour)))

	got, err := r.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u3" || got[1].ID != "u2" {
		t.Errorf("List page 1 = %v", ids(got))
	}
	got, _ = r.List(ctx, 2, 2)
	if len(got) != 1 || got[0].ID != "u1" {
		t.Errorf("List page 2 = %v", ids(got))
	}
	got, _ = r.List(ctx, 2, 5)
	if len(got) != 0 {
		t.Errorf("List past end = %v", ids(got))
	}
}

func TestMemoryRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := newUser("u1", "a@example.com", time.Now())
	_ = r.Create(ctx, u)

	u.Status = domain.UserStatusActive
	if err := r.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := r.GetByID(ctx, "u1")
	if got.Status != domain.UserStatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if err := r.Update(ctx, newUser("ghost", "g@example.com", time.Now())); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
	at := time.Now()
	if err := r.SetLastLogin(ctx, "u1", at); err != nil {
		t.Fatalf("SetLastLogin: %v", err)
	}
	got, _ = r.GetByID(ctx, "u1")
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
	}
	if err := r.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete(ctx, "u1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete twice err = %v, want ErrNotFound", err)
	}
}

func ids(users []*domain.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
