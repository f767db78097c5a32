package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_IsErrValidation(t *testing.T) {
	err := Required("fullName")
	if !errors.Is(err, ErrValidation) {
		t.Fatal("Required should match ErrValidation")
	}
	wrapped := fmt.Errorf("add address: %w", err)
	if !errors.Is(wrapped, ErrValidation) {
		t.Fatal("wrapped ValidationError should match ErrValidation")
	}
	var ve *ValidationError
	if !errors.As(wrapped, &ve) {
		t.Fatal("errors.As should find *ValidationError")
	}
	if ve.Field != "fullName" {
		t.Errorf("Field = %q, want %q", ve.Field, "fullName")
	}
	if err.Error() != "invalid fullName: is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidationError_NotOtherSentinels(t *testing.T) {
	err := Invalid("type", "must be shipping, billing or both")
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		t.Error("ValidationError must only match ErrValidation")
	}
}
