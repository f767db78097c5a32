package domain

import (
	"errors"
	"testing"

	"storefront/backend/internal/platform/errs"
)

func TestUserValidate(t *testing.T) {
	valid := func() User {
		return User{Name: "Amira", Email: "amira@example.com", Role: RoleUser, Status: UserStatusPending}
	}
	testCases := []struct {
		name   string
		mutate func(*User)
		field  string
	}{
		{"ok", func(*User) {}, ""},
		{"no name", func(u *User) { u.Name = " " }, "name"},
		{"no email", func(u *User) { u.Email = "" }, "email"},
		{"bad email", func(u *User) { u.Email = "amira" }, "email"},
		{"bad role", func(u *User) { u.Role = "root" }, "role"},
		{"bad status", func(u *User) { u.Status = "disabled" }, "status"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := valid()
			tc.mutate(&u)
			err := u.Validate()
			if tc.field == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			var verr *errs.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Errorf("Validate err = %v, want field %q", err, tc.field)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Amira@Example.COM "); got != "amira@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
