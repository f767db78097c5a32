package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"storefront/backend/internal/catalog/domain"
	"storefront/backend/internal/db"
	"storefront/backend/internal/platform/errs"
)

const productColumns = `id, name, description, price, unit_price, currency, stock_quantity, category_id, image_uris, available_date, is_active, created_at, updated_at`

const logColumns = `id, product_id, product_name, change, reason, performed_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresProductRepository is a ProductRepository backed by the products and inventory_logs tables.
// A stock adjustment is a single conditional UPDATE, so concurrent decrements never oversell.
type PostgresProductRepository struct {
	db *sql.DB
}

// NewPostgresProductRepository returns a product repository that uses the given db for persistence.
func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PostgresProductRepository) Create(ctx context.Context, p *domain.Product) error {
	images, err := json.Marshal(imagesOrEmpty(p.ImageURIs))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Name, p.Description, p.Price, p.UnitPrice, p.Currency, p.StockQuantity, p.CategoryID,
		string(images), nullTime(p.AvailableDate), p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return errs.ErrDuplicate
	}
	return err
}

func (r *PostgresProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error) {
	var updated domain.Product
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
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
		images, err := json.Marshal(imagesOrEmpty(updated.ImageURIs))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET name = $2, description = $3, price = $4, unit_price = $5, currency = $6,
			 category_id = $7, image_uris = $8, available_date = $9, is_active = $10, updated_at = $11 WHERE id = $1`,
			updated.ID, updated.Name, updated.Description, updated.Price, updated.UnitPrice, updated.Currency,
			updated.CategoryID, string(images), nullTime(updated.AvailableDate), updated.IsActive, updated.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
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

func (r *PostgresProductRepository) AdjustStock(ctx context.Context, entry *domain.InventoryLog) (*domain.Product, error) {
	var p *domain.Product
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		p, err = scanProduct(tx.QueryRowContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = $3
			 WHERE id = $1 AND stock_quantity + $2 >= 0
			 RETURNING `+productColumns,
			entry.ProductID, entry.Change, entry.CreatedAt))
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, entry.ProductID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return errs.ErrNotFound
			}
			return domain.ErrInsufficientStock
		}
		if err != nil {
			return err
		}
		entry.ProductName = p.Name
		_, err = tx.ExecContext(ctx,
			`INSERT INTO inventory_logs (`+logColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.ProductID, entry.ProductName, entry.Change, entry.Reason, entry.PerformedBy, entry.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresProductRepository) ListLogs(ctx context.Context, productID string) ([]*domain.InventoryLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM inventory_logs WHERE $1 = '' OR product_id = $1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.InventoryLog
	for rows.Next() {
		var l domain.InventoryLog
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Change, &l.Reason, &l.PerformedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func scanProduct(s rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		images    string
		available sql.NullTime
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.UnitPrice, &p.Currency, &p.StockQuantity,
		&p.CategoryID, &images, &available, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.ImageURIs); err != nil {
		return nil, err
	}
	if available.Valid {
		t := available.Time.UTC()
		p.AvailableDate = &t
	}
	return &p, nil
}

func imagesOrEmpty(uris []string) []string {
	if uris == nil {
		return []string{}
	}
	return uris
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
