package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/backend/internal/currency/domain"
	"storefront/backend/internal/db"
	"storefront/backend/internal/platform/errs"
)

const columns = `id, code, symbol, rate, is_base, is_active, created_at, updated_at`

// baseLockKey serialises every base change; the base partition is global.
const baseLockKey = "currencies:base"

// Postgres is a Repository backed by the currencies table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a currency repository that uses the given db for persistence.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) List(ctx context.Context) ([]*domain.Currency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Postgres) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM currencies WHERE id = $1`, id)
}

func (r *Postgres) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM currencies WHERE code = $1`, domain.NormalizeCode(code))
}

func (r *Postgres) GetBase(ctx context.Context) (*domain.Currency, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM currencies WHERE is_base LIMIT 1`)
}

func (r *Postgres) getOne(ctx context.Context, query string, args ...any) (*domain.Currency, error) {
	c, err := scanCurrency(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *Postgres) Create(ctx context.Context, c *domain.Currency) ([]string, error) {
	var cleared []string
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if c.IsBase {
			if err := db.LockKey(ctx, tx, baseLockKey); err != nil {
				return err
			}
			var err error
			if cleared, err = clearBase(ctx, tx, c.ID, c.UpdatedAt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO currencies (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Code, c.Symbol, c.Rate, c.IsBase, c.IsActive, c.CreatedAt, c.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return errs.ErrDuplicate
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (r *Postgres) Update(ctx context.Context, id string, patch domain.Patch, at time.Time) (*domain.Currency, []string, error) {
	var (
		updated domain.Currency
		cleared []string
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := db.LockKey(ctx, tx, baseLockKey); err != nil {
			return err
		}
		current, err := scanCurrency(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM currencies WHERE id = $1 FOR UPDATE`, id))
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
		if updated.IsBase {
			if cleared, err = clearBase(ctx, tx, id, at); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE currencies SET code = $2, symbol = $3, rate = $4, is_base = $5, is_active = $6, updated_at = $7 WHERE id = $1`,
			id, updated.Code, updated.Symbol, updated.Rate, updated.IsBase, updated.IsActive, updated.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return errs.ErrDuplicate
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *Postgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM currencies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM currencies`).Scan(&n)
	return n, err
}

func clearBase(ctx context.Context, tx *sql.Tx, keepID string, at time.Time) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`UPDATE currencies SET is_base = false, updated_at = $2 WHERE is_base AND id <> $1 RETURNING id`, keepID, at)
	if err != nil {
		return nil, err
	}
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrency(s rowScanner) (*domain.Currency, error) {
	var c domain.Currency
	if err := s.Scan(&c.ID, &c.Code, &c.Symbol, &c.Rate, &c.IsBase, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
