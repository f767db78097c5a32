package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/backend/internal/db"
	"storefront/backend/internal/order/domain"
	"storefront/backend/internal/platform/errs"
)

const orderColumns = `id, user_id, total_amount, currency, status, payment_status, payment_method_id, delivery_method, shipping_address, billing_address, tracking_number, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresOrderRepository is an OrderRepository backed by the orders and order_items tables.
// Status changes lock the order row so concurrent updates see each other's result.
type PostgresOrderRepository struct {
	db *sql.DB
}

// NewPostgresOrderRepository returns an order repository that uses the given db for persistence.
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			o.ID, o.UserID, o.TotalAmount, o.Currency, string(o.Status), string(o.PaymentStatus),
			nullString(o.PaymentMethodID), nullString(o.DeliveryMethod), o.ShippingAddress, o.BillingAddress,
			nullString(o.TrackingNumber), nullString(o.Notes), o.CreatedAt, o.UpdatedAt,
		)
		if db.IsUniqueViolation(err) {
			return errs.ErrDuplicate
		}
		if err != nil {
			return err
		}
		for i, it := range o.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, line, product_id, product_name, quantity, price_at_purchase)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = loadItems(ctx, r.db, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *PostgresOrderRepository) List(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE $1 = '' OR status = $1 ORDER BY created_at DESC, id DESC`, string(status))
}

func (r *PostgresOrderRepository) list(ctx context.Context, query string, arg string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Items, err = loadItems(ctx, r.db, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange, at time.Time) (*domain.Order, domain.Status, error) {
	var (
		updated *domain.Order
		prev    domain.Status
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		prev = o.Status
		if !prev.CanBecome(change.Status) {
			return domain.ErrTransition(prev, change.Status)
		}
		applyChange(o, change, at)
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, payment_status = $3, tracking_number = $4, updated_at = $5 WHERE id = $1`,
			o.ID, string(o.Status), string(o.PaymentStatus), nullString(o.TrackingNumber), o.UpdatedAt,
		); err != nil {
			return err
		}
		if o.Items, err = loadItems(ctx, tx, o.ID); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return updated, prev, nil
}

func loadItems(ctx context.Context, q querier, orderID string) ([]domain.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, price_at_purchase FROM order_items WHERE order_id = $1 ORDER BY line`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var (
		o                                        domain.Order
		status, payment                          string
		paymentMethod, delivery, tracking, notes sql.NullString
	)
	err := s.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Currency, &status, &payment, &paymentMethod, &delivery,
		&o.ShippingAddress, &o.BillingAddress, &tracking, &notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	o.PaymentStatus = domain.PaymentStatus(payment)
	o.PaymentMethodID = paymentMethod.String
	o.DeliveryMethod = delivery.String
	o.TrackingNumber = tracking.String
	o.Notes = notes.String
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
