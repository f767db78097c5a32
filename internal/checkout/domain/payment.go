package domain

import (
	"net/mail"
	"strings"
	"time"

	"storefront/backend/internal/platform/errs"
)

// PaymentType is the kind of payment method.
type PaymentType string

const (
	PaymentCard         PaymentType = "card"
	PaymentPayPal       PaymentType = "paypal"
	PaymentBankTransfer PaymentType = "bank_transfer"
)

// PaymentMethod is a stored payment method. Card numbers are never stored, only the last four digits.
type PaymentMethod struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Type           PaymentType `json:"type"`
	IsDefault      bool        `json:"isDefault"`
	CardholderName string      `json:"cardholderName,omitempty"`
	CardLast4      string      `json:"cardLast4,omitempty"`
	CardBrand      string      `json:"cardBrand,omitempty"`
	ExpiryMonth    int         `json:"expiryMonth,omitempty"`
	ExpiryYear     int         `json:"expiryYear,omitempty"`
	PayPalEmail    string      `json:"paypalEmail,omitempty"`
	AccountNumber  string      `json:"accountNumber,omitempty"`
	BankName       string      `json:"bankName,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// ConflictsWith reports whether p and o may not both be default: one default per user.
func (p *PaymentMethod) ConflictsWith(o *PaymentMethod) bool {
	return p.UserID == o.UserID
}

// Validate checks the owner and the fields required by the payment type.
func (p *PaymentMethod) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return errs.Required("userId")
	}
	switch p.Type {
	case PaymentCard:
		if strings.TrimSpace(p.CardholderName) == "" {
			return errs.Required("cardholderName")
		}
		if !isDigits(p.CardLast4, 4) {
			return errs.Invalid("cardLast4", "must be 4 digits")
		}
		if p.ExpiryMonth < 1 || p.ExpiryMonth > 12 {
			return errs.Invalid("expiryMonth", "must be between 1 and 12")
		}
		if p.ExpiryYear < 2000 || p.ExpiryYear > 9999 {
			return errs.Invalid("expiryYear", "must be a four-digit year")
		}
	case PaymentPayPal:
		if _, err := mail.ParseAddress(p.PayPalEmail); err != nil {
			return errs.Invalid("paypalEmail", "must be an email address")
		}
	case PaymentBankTransfer:
		if strings.TrimSpace(p.AccountNumber) == "" {
			return errs.Required("accountNumber")
		}
		if strings.TrimSpace(p.BankName) == "" {
			return errs.Required("bankName")
		}
	default:
		return errs.Invalid("type", "must be card, paypal or bank_transfer")
	}
	return nil
}

// Expired reports whether a card's expiry month is before the month of now. Non-card methods never expire.
func (p *PaymentMethod) Expired(now time.Time) bool {
	if p.Type != PaymentCard {
		return false
	}
	y, m, _ := now.Date()
	return p.ExpiryYear < y || (p.ExpiryYear == y && p.ExpiryMonth < int(m))
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PaymentMethodPatch is a partial update. Nil fields are left unchanged.
type PaymentMethodPatch struct {
	Type           *PaymentType `json:"type,omitempty"`
	IsDefault      *bool        `json:"isDefault,omitempty"`
	CardholderName *string      `json:"cardholderName,omitempty"`
	CardLast4      *string      `json:"cardLast4,omitempty"`
	CardBrand      *string      `json:"cardBrand,omitempty"`
	ExpiryMonth    *int         `json:"expiryMonth,omitempty"`
	ExpiryYear     *int         `json:"expiryYear,omitempty"`
	PayPalEmail    *string      `json:"paypalEmail,omitempty"`
	AccountNumber  *string      `json:"accountNumber,omitempty"`
	BankName       *string      `json:"bankName,omitempty"`
}

// Apply returns a copy of p with the patch applied and UpdatedAt set to at.
func (patch PaymentMethodPatch) Apply(p PaymentMethod, at time.Time) PaymentMethod {
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.IsDefault != nil {
		p.IsDefault = *patch.IsDefault
	}
	if patch.ExpiryMonth != nil {
		p.ExpiryMonth = *patch.ExpiryMonth
	}
	if patch.ExpiryYear != nil {
		p.ExpiryYear = *patch.ExpiryYear
	}
	setString(&p.CardholderName, patch.CardholderName)
	setString(&p.CardLast4, patch.CardLast4)
	setString(&p.CardBrand, patch.CardBrand)
	setString(&p.PayPalEmail, patch.PayPalEmail)
	setString(&p.AccountNumber, patch.AccountNumber)
	setString(&p.BankName, patch.BankName)
	p.UpdatedAt = at
	return p
}
