package domain

import (
	"strings"
	"time"

	"storefront/backend/internal/platform/errs"
)

// AddressType is the use of an address. AddressBoth stands for shipping and billing at once.
type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
	AddressBoth     AddressType = "both"
)

// Valid reports whether t is a known address type.
func (t AddressType) Valid() bool {
	switch t {
	case AddressShipping, AddressBilling, AddressBoth:
		return true
	}
	return false
}

// Overlaps reports whether addresses of types t and o compete for the same default.
// AddressBoth overlaps every type in either direction.
func (t AddressType) Overlaps(o AddressType) bool {
	return t == o || t == AddressBoth || o == AddressBoth
}

// Address is a user's postal address.
type Address struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	Type         AddressType `json:"type"`
	IsDefault    bool        `json:"isDefault"`
	FullName     string      `json:"fullName"`
	AddressLine1 string      `json:"addressLine1"`
	AddressLine2 string      `json:"addressLine2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostalCode   string      `json:"postalCode"`
	Country      string      `json:"country"`
	Phone        string      `json:"phone"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// ConflictsWith reports whether a and o may not both be default: same user and overlapping types.
func (a *Address) ConflictsWith(o *Address) bool {
	return a.UserID == o.UserID && a.Type.Overlaps(o.Type)
}

// OneLine formats a as a single postal line.
func (a *Address) OneLine() string {
	parts := []string{a.FullName, a.AddressLine1}
	if a.AddressLine2 != "" {
		parts = append(parts, a.AddressLine2)
	}
	parts = append(parts, a.PostalCode+" "+a.City, a.State, a.Country)
	return strings.Join(parts, ", ")
}

// Validate checks required fields and the address type.
func (a *Address) Validate() error {
	required := []struct{ field, value string }{
		{"userId", a.UserID},
		{"fullName", a.FullName},
		{"addressLine1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
		{"phone", a.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errs.Required(r.field)
		}
	}
	if !a.Type.Valid() {
		return errs.Invalid("type", "must be shipping, billing or both")
	}
	return nil
}

// AddressPatch is a partial update. Nil fields are left unchanged.
type AddressPatch struct {
	Type         *AddressType `json:"type,omitempty"`
	IsDefault    *bool        `json:"isDefault,omitempty"`
	FullName     *string      `json:"fullName,omitempty"`
	AddressLine1 *string      `json:"addressLine1,omitempty"`
	AddressLine2 *string      `json:"addressLine2,omitempty"`
	City         *string      `json:"city,omitempty"`
	State        *string      `json:"state,omitempty"`
	PostalCode   *string      `json:"postalCode,omitempty"`
	Country      *string      `json:"country,omitempty"`
	Phone        *string      `json:"phone,omitempty"`
}

// Apply returns a copy of a with the patch applied and UpdatedAt set to at. The owner and id never change.
func (p AddressPatch) Apply(a Address, at time.Time) Address {
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
	setString(&a.FullName, p.FullName)
	setString(&a.AddressLine1, p.AddressLine1)
	setString(&a.AddressLine2, p.AddressLine2)
	setString(&a.City, p.City)
	setString(&a.State, p.State)
	setString(&a.PostalCode, p.PostalCode)
	setString(&a.Country, p.Country)
	setString(&a.Phone, p.Phone)
	a.UpdatedAt = at
	return a
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
