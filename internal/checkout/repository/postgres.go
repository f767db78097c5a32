package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/db"
	"storefront/backend/internal/platform/errs"
)

const addressColumns = `id, user_id, type, is_default, full_name, address_line1, address_line2, city, state, postal_code, country, phone, created_at, updated_at`

const paymentColumns = `id, user_id, type, is_default, cardholder_name, card_last4, card_brand, expiry_month, expiry_year, paypal_email, account_number, bank_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresAddressRepository is an AddressRepository backed by the addresses table.
// Default changes for one user are serialised by an advisory lock on the user id and run in the
// same transaction as the write.
type PostgresAddressRepository struct {
	db *sql.DB
}

// NewPostgresAddressRepository returns an address repository that uses the given db for persistence.
func NewPostgresAddressRepository(db *sql.DB) *PostgresAddressRepository {
	return &PostgresAddressRepository{db: db}
}

func (r *PostgresAddressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresAddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *PostgresAddressRepository) GetDefault(ctx context.Context, userID string, t domain.AddressType) (*domain.Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE user_id = $1 AND is_default AND (type = $2 OR type = 'both' OR $2 = 'both')
		 ORDER BY created_at DESC LIMIT 1`,
		userID, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *PostgresAddressRepository) Create(ctx context.Context, a *domain.Address) ([]string, error) {
	var cleared []string
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := db.LockKey(ctx, tx, "addresses:"+a.UserID); err != nil {
				return err
			}
			var err error
			if cleared, err = clearAddressDefaults(ctx, tx, a, a.UpdatedAt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO addresses (`+addressColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			a.ID, a.UserID, string(a.Type), a.IsDefault, a.FullName, a.AddressLine1, nullString(a.AddressLine2),
			a.City, a.State, a.PostalCode, a.Country, a.Phone, a.CreatedAt, a.UpdatedAt,
		)
		return mapWriteErr(err)
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (r *PostgresAddressRepository) Update(ctx context.Context, id string, patch domain.AddressPatch, at time.Time) (*domain.Address, []string, error) {
	var (
		updated domain.Address
		cleared []string
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID string
		if err := tx.QueryRowContext(ctx, `SELECT user_id FROM addresses WHERE id = $1`, id).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if err := db.LockKey(ctx, tx, "addresses:"+userID); err != nil {
			return err
		}
		current, err := scanAddress(tx.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		updated = patch.Apply(*current, at)
		if err := updated.Validate(); err != nil {
			return err
		}
		if updated.IsDefault {
			if cleared, err = clearAddressDefaults(ctx, tx, &updated, at); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE addresses SET type = $2, is_default = $3, full_name = $4, address_line1 = $5, address_line2 = $6,
			 city = $7, state = $8, postal_code = $9, country = $10, phone = $11, updated_at = $12 WHERE id = $1`,
			updated.ID, string(updated.Type), updated.IsDefault, updated.FullName, updated.AddressLine1,
			nullString(updated.AddressLine2), updated.City, updated.State, updated.PostalCode, updated.Country,
			updated.Phone, updated.UpdatedAt,
		)
		return mapWriteErr(err)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *PostgresAddressRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// clearAddressDefaults unsets every other default of a's user whose type overlaps a's type.
func clearAddressDefaults(ctx context.Context, tx *sql.Tx, a *domain.Address, at time.Time) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`UPDATE addresses SET is_default = false, updated_at = $4
		 WHERE user_id = $1 AND is_default AND id <> $2 AND (type = $3 OR type = 'both' OR $3 = 'both')
		 RETURNING id`,
		a.UserID, a.ID, string(a.Type), at)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func scanAddress(s rowScanner) (*domain.Address, error) {
	var (
		a     domain.Address
		typ   string
		line2 sql.NullString
	)
	err := s.Scan(&a.ID, &a.UserID, &typ, &a.IsDefault, &a.FullName, &a.AddressLine1, &line2,
		&a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = domain.AddressType(typ)
	a.AddressLine2 = line2.String
	return &a, nil
}

// PostgresPaymentMethodRepository is a PaymentMethodRepository backed by the payment_methods table.
type PostgresPaymentMethodRepository struct {
	db *sql.DB
}

// NewPostgresPaymentMethodRepository returns a payment method repository that uses the given db for persistence.
func NewPostgresPaymentMethodRepository(db *sql.DB) *PostgresPaymentMethodRepository {
	return &PostgresPaymentMethodRepository{db: db}
}

func (r *PostgresPaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_methods WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.PaymentMethod
	for rows.Next() {
		p, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPaymentMethodRepository) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	p, err := scanPaymentMethod(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_methods WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PostgresPaymentMethodRepository) GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	p, err := scanPaymentMethod(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_methods WHERE user_id = $1 AND is_default LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PostgresPaymentMethodRepository) Create(ctx context.Context, p *domain.PaymentMethod) ([]string, error) {
	var cleared []string
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if p.IsDefault {
			if err := db.LockKey(ctx, tx, "payment_methods:"+p.UserID); err != nil {
				return err
			}
			var err error
			if cleared, err = clearPaymentDefaults(ctx, tx, p, p.UpdatedAt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payment_methods (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			paymentArgs(p)...,
		)
		return mapWriteErr(err)
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (r *PostgresPaymentMethodRepository) Update(ctx context.Context, id string, patch domain.PaymentMethodPatch, at time.Time) (*domain.PaymentMethod, []string, error) {
	var (
		updated domain.PaymentMethod
		cleared []string
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID string
		if err := tx.QueryRowContext(ctx, `SELECT user_id FROM payment_methods WHERE id = $1`, id).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if err := db.LockKey(ctx, tx, "payment_methods:"+userID); err != nil {
			return err
		}
		current, err := scanPaymentMethod(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_methods WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		updated = patch.Apply(*current, at)
		if err := updated.Validate(); err != nil {
			return err
		}
		if updated.IsDefault {
			if cleared, err = clearPaymentDefaults(ctx, tx, &updated, at); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE payment_methods SET user_id = $2, type = $3, is_default = $4, cardholder_name = $5, card_last4 = $6,
			 card_brand = $7, expiry_month = $8, expiry_year = $9, paypal_email = $10, account_number = $11,
			 bank_name = $12, created_at = $13, updated_at = $14 WHERE id = $1`,
			paymentArgs(&updated)...,
		)
		return mapWriteErr(err)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *PostgresPaymentMethodRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func clearPaymentDefaults(ctx context.Context, tx *sql.Tx, p *domain.PaymentMethod, at time.Time) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`UPDATE payment_methods SET is_default = false, updated_at = $3
		 WHERE user_id = $1 AND is_default AND id <> $2 RETURNING id`,
		p.UserID, p.ID, at)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func paymentArgs(p *domain.PaymentMethod) []any {
	return []any{
		p.ID, p.UserID, string(p.Type), p.IsDefault, nullString(p.CardholderName), nullString(p.CardLast4),
		nullString(p.CardBrand), nullInt(p.ExpiryMonth), nullInt(p.ExpiryYear), nullString(p.PayPalEmail),
		nullString(p.AccountNumber), nullString(p.BankName), p.CreatedAt, p.UpdatedAt,
	}
}

func scanPaymentMethod(s rowScanner) (*domain.PaymentMethod, error) {
	var (
		p                                 domain.PaymentMethod
		typ                               string
		holder, last4, brand, email, acct sql.NullString
		bank                              sql.NullString
		month, year                       sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.UserID, &typ, &p.IsDefault, &holder, &last4, &brand, &month, &year,
		&email, &acct, &bank, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Type = domain.PaymentType(typ)
	p.CardholderName = holder.String
	p.CardLast4 = last4.String
	p.CardBrand = brand.String
	p.ExpiryMonth = int(month.Int64)
	p.ExpiryYear = int(year.Int64)
	p.PayPalEmail = email.String
	p.AccountNumber = acct.String
	p.BankName = bank.String
	return &p, nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err) {
		return errs.ErrDuplicate
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
