package domain

import (
	"net/mail"
	"strings"
	"time"

	"storefront/backend/internal/platform/errs"
)

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Phone        string     `json:"phone,omitempty"`
	AvatarURI    string     `json:"avatarUri,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleUser         Role = "user"
	RoleStockManager Role = "gestionnaire_de_stock"
	RoleAnonyme      Role = "anonyme"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStockManager, RoleAnonyme:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusPending  UserStatus = "pending"
	UserStatusRejected UserStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusPending, UserStatusRejected:
		return true
	}
	return false
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return errs.Required("name")
	}
	if u.Email == "" {
		return errs.Required("email")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return errs.Invalid("email", "must be a valid address")
	}
	if !u.Role.Valid() {
		return errs.Invalid("role", "unknown role")
	}
	if !u.Status.Valid() {
		return errs.Invalid("status", "unknown status")
	}
	return nil
}
