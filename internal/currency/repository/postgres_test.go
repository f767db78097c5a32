package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"storefront/backend/internal/currency/domain"
	"storefront/backend/internal/platform/errs"
)

var currencyCols = []string{"id", "code", "symbol", "rate", "is_base", "is_active", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgres_CreateBaseClearsPrevious(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgres(db)
	c := cur("2", "USD", 1, true)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs(baseLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE currencies SET is_base = false`).WithArgs("2", c.UpdatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1"))
	mock.ExpectExec(`INSERT INTO currencies`).
		WithArgs("2", "USD", "USD", 1.0, true, true, c.CreatedAt, c.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cleared, err := r.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(cleared) != 1 || cleared[0] != "1" {
		t.Errorf("cleared = %v, want [1]", cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("nope").WillReturnRows(sqlmock.NewRows(currencyCols))
	mock.ExpectRollback()

	if _, _, err := r.Update(context.Background(), "nope", domain.Patch{}, t0); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_UpdateToBase(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("3").
		WillReturnRows(sqlmock.NewRows(currencyCols).AddRow("3", "TND", "DT", 3.35, false, true, t0, t0))
	mock.ExpectQuery(`UPDATE currencies SET is_base = false`).WithArgs("3", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1"))
	mock.ExpectExec(`UPDATE currencies SET code`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	yes := true
	c, cleared, err := r.Update(context.Background(), "3", domain.Patch{IsBase: &yes}, t0)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !c.IsBase || len(cleared) != 1 {
		t.Errorf("Update = %+v cleared %v", c, cleared)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_GetBaseNone(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgres(db)
	mock.ExpectQuery(`WHERE is_base`).WillReturnRows(sqlmock.NewRows(currencyCols))

	c, err := r.GetBase(context.Background())
	if err != nil || c != nil {
		t.Errorf("GetBase = %v, %v; want nil, nil", c, err)
	}
}

func TestPostgres_Count(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPostgres(db)
	mock.ExpectQuery(`SELECT count`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := r.Count(context.Background())
	if err != nil || n != 4 {
		t.Errorf("Count = %d, %v; want 4", n, err)
	}
}
