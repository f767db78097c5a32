package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/backend/internal/db"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/user/domain"
)

const userColumns = `id, name, email, role, status, phone, avatar_uri, password_hash, created_at, updated_at, last_login`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int32) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Status), nullString(u.Phone), nullString(u.AvatarURI),
		u.PasswordHash, u.CreatedAt, u.UpdatedAt, nullTime(u.LastLogin),
	)
	if db.IsUniqueViolation(err) {
		return errs.ErrDuplicate
	}
	return err
}

// Update overwrites name, email, role, status, phone, avatar and password hash.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, role = $4, status = $5, phone = $6, avatar_uri = $7,
		 password_hash = $8, updated_at = $9 WHERE id = $1`,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Status), nullString(u.Phone), nullString(u.AvatarURI),
		u.PasswordHash, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return errs.ErrDuplicate
	}
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u            domain.User
		role, status string
		phone        sql.NullString
		avatar       sql.NullString
		lastLogin    sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &role, &status, &phone, &avatar, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	u.Phone = phone.String
	u.AvatarURI = avatar.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
