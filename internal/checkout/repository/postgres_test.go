package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/platform/errs"
)

var addressCols = []string{
	"id", "user_id", "type", "is_default", "full_name", "address_line1", "address_line2", "city",
	"state", "postal_code", "country", "phone", "created_at", "updated_at",
}

func addressRow(rows *sqlmock.Rows, a *domain.Address) *sqlmock.Rows {
	return rows.AddRow(a.ID, a.UserID, string(a.Type), a.IsDefault, a.FullName, a.AddressLine1, nil,
		a.City, a.State, a.PostalCode, a.Country, a.Phone, a.CreatedAt, a.UpdatedAt)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresAddress_CreateDefaultClearsSiblings(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)
	a := newAddress("a2", "u1", domain.AddressShipping, true)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("addresses:u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE addresses SET is_default = false`).
		WithArgs("u1", "a2", "shipping", a.UpdatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))
	mock.ExpectExec(`INSERT INTO addresses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := r.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(cleared) != 1 || cleared[0] != "a1" {
		t.Errorf("cleared = %v, want [a1]", cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_CreateNonDefaultSkipsLock(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO addresses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := r.Create(context.Background(), newAddress("a1", "u1", domain.AddressBilling, false))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(cleared) != 0 {
		t.Errorf("cleared = %v, want none", cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_CreateInsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE addresses SET is_default = false`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))
	mock.ExpectExec(`INSERT INTO addresses`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if _, err := r.Create(context.Background(), newAddress("a2", "u1", domain.AddressShipping, true)); err == nil {
		t.Fatal("Create should fail when the insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_UpdateToDefault(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)
	current := newAddress("a2", "u1", domain.AddressBoth, false)
	at := t0.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM addresses`).WithArgs("a2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("addresses:u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("a2").WillReturnRows(addressRow(sqlmock.NewRows(addressCols), current))
	mock.ExpectQuery(`UPDATE addresses SET is_default = false`).
		WithArgs("u1", "a2", "both", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ship").AddRow("bill"))
	mock.ExpectExec(`UPDATE addresses SET type`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	yes := true
	updated, cleared, err := r.Update(context.Background(), "a2", domain.AddressPatch{IsDefault: &yes}, at)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.IsDefault || !updated.UpdatedAt.Equal(at) {
		t.Errorf("updated = %+v, want default at %v", updated, at)
	}
	if len(cleared) != 2 {
		t.Errorf("cleared = %v, want ship and bill", cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM addresses`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := r.Update(context.Background(), "nope", domain.AddressPatch{}, t0)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_UpdateInvalidRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM addresses`).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(addressRow(sqlmock.NewRows(addressCols), newAddress("a1", "u1", domain.AddressShipping, false)))
	mock.ExpectRollback()

	bad := domain.AddressType("office")
	_, _, err := r.Update(context.Background(), "a1", domain.AddressPatch{Type: &bad}, t0)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Update err = %v, want ErrValidation", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresAddress_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)
	mock.ExpectQuery(`SELECT .* FROM addresses WHERE id = \$1`).WithArgs("nope").WillReturnRows(sqlmock.NewRows(addressCols))

	a, err := r.GetByID(context.Background(), "nope")
	if err != nil || a != nil {
		t.Errorf("GetByID = %v, %v; want nil, nil", a, err)
	}
}

func TestPostgresAddress_GetDefault(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)
	want := newAddress("both", "u1", domain.AddressBoth, true)
	mock.ExpectQuery(`is_default AND`).WithArgs("u1", "billing").
		WillReturnRows(addressRow(sqlmock.NewRows(addressCols), want))

	a, err := r.GetDefault(context.Background(), "u1", domain.AddressBilling)
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if a == nil || a.ID != "both" || a.Type != domain.AddressBoth {
		t.Errorf("GetDefault = %+v, want both", a)
	}
}

func TestPostgresAddress_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresAddressRepository(db)
	mock.ExpectExec(`DELETE FROM addresses`).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := r.Delete(context.Background(), "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestPostgresPaymentMethod_CreateDefault(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresPaymentMethodRepository(db)
	p := newCard("p2", "u1", true)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("payment_methods:u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE payment_methods SET is_default = false`).
		WithArgs("u1", "p2", p.UpdatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec(`INSERT INTO payment_methods`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := r.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(cleared) != 1 || cleared[0] != "p1" {
		t.Errorf("cleared = %v, want [p1]", cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresPaymentMethod_GetDefaultScansNullableColumns(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgresPaymentMethodRepository(db)
	cols := []string{
		"id", "user_id", "type", "is_default", "cardholder_name", "card_last4", "card_brand",
		"expiry_month", "expiry_year", "paypal_email", "account_number", "bank_name", "created_at", "updated_at",
	}
	mock.ExpectQuery(`FROM payment_methods WHERE user_id = \$1 AND is_default`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("p1", "u1", "paypal", true, nil, nil, nil, nil, nil,
			"ada@example.com", nil, nil, t0, t0))

	p, err := r.GetDefault(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if p.Type != domain.PaymentPayPal || p.PayPalEmail != "ada@example.com" || p.ExpiryMonth != 0 {
		t.Errorf("GetDefault = %+v", p)
	}
}
