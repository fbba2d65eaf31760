package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/mm2-store/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	// ChangeStatus moves the order from change.FromStatus to change.ToStatus and
	// records the change. A non-nil receiptURL replaces the stored receipt.
	// It returns ErrConflict when the order is no longer in FromStatus.
	ChangeStatus(ctx context.Context, change *model.OrderStatusChange, receiptURL *string) (*model.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusChange, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByStatuses removes every order in one of statuses and returns how
	// many went along with the receipt references they held.
	DeleteByStatuses(ctx context.Context, statuses []model.OrderStatus) (int64, []string, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, email, roblox_username, payment_method, payment_reference,
	total_amount, status, items, receipt_url, created_at, updated_at`

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	order.ID = uuid.New()
	err = r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, email, roblox_username, payment_method, payment_reference,
			total_amount, status, items, receipt_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.Email, order.RobloxUsername, order.PaymentMethod,
		order.PaymentReference, order.TotalAmount, order.Status, string(items), order.ReceiptURL,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) ChangeStatus(ctx context.Context, change *model.OrderStatusChange, receiptURL *string) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx,
		`UPDATE orders SET status = $3, receipt_url = COALESCE($4, receipt_url), updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		change.OrderID, change.FromStatus, change.ToStatus, receiptURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	change.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO order_status_changes (id, order_id, from_status, to_status, actor, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		change.ID, change.OrderID, change.FromStatus, change.ToStatus, change.Actor,
	).Scan(&change.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert status change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) History(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusChange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, from_status, to_status, actor, created_at
		 FROM order_status_changes WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	var changes []model.OrderStatusChange
	for rows.Next() {
		var c model.OrderStatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.Actor, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Delete removes the order; chat messages and status history cascade.
func (r *pgOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgOrderRepo) DeleteByStatuses(ctx context.Context, statuses []model.OrderStatus) (int64, []string, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `DELETE FROM orders WHERE status = ANY($1) RETURNING receipt_url`, names)
	if err != nil {
		return 0, nil, fmt.Errorf("delete orders by status: %w", err)
	}
	var (
		n        int64
		receipts []string
	)
	for rows.Next() {
		var ref *string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("scan deleted order: %w", err)
		}
		n++
		if ref != nil {
			receipts = append(receipts, *ref)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("delete orders by status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("commit cleanup: %w", err)
	}
	return n, receipts, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var items string
	err := row.Scan(
		&o.ID, &o.UserID, &o.Email, &o.RobloxUsername, &o.PaymentMethod, &o.PaymentReference,
		&o.TotalAmount, &o.Status, &items, &o.ReceiptURL, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}
