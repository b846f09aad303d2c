package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

type orderRepository struct {
	db DB

	// Order ids are assigned monotonically and never reused. The last issued
	// id is cached so issuing does not re-run MAX on every order; the mutex
	// serializes assignment between concurrent cashiers.
	mu          sync.Mutex
	lastOrderID int
}

// NewOrderRepository loads the last issued order id and returns the lifecycle
// store backed by db.
func NewOrderRepository(ctx context.Context, db DB) (interfaces.OrderRepository, error) {
	r := &orderRepository{db: db}

	query := `SELECT COALESCE(MAX(order_id), 0) FROM orders`
	if err := db.QueryRow(ctx, query).Scan(&r.lastOrderID); err != nil {
		return nil, fmt.Errorf("failed to load last order id: %w", err)
	}
	return r, nil
}

func (r *orderRepository) Issue(ctx context.Context, productIDs []int) (int, error) {
	if len(productIDs) == 0 {
		return 0, fmt.Errorf("cannot issue an order with no items")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderID := r.lastOrderID + 1

	query := `INSERT INTO orders (order_id) VALUES ($1)`
	if _, err := tx.Exec(ctx, query, orderID); err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO ordered_items (order_id, item_no, product_id)
		VALUES ($1, $2, $3)
	`
	for itemNo, productID := range productIDs {
		if _, err := tx.Exec(ctx, itemQuery, orderID, itemNo, productID); err != nil {
			return 0, fmt.Errorf("failed to insert ordered item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	r.lastOrderID = orderID
	return orderID, nil
}

func (r *orderRepository) Cancel(ctx context.Context, orderID int) error {
	query := `UPDATE orders SET canceled_at = now(), completed_at = NULL WHERE order_id = $1`
	tag, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) Reset(ctx context.Context, orderID int) error {
	query := `UPDATE orders SET canceled_at = NULL, completed_at = NULL WHERE order_id = $1`
	tag, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("failed to reset order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) SupplyAndCompleteIfDone(ctx context.Context, orderID, productID int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Supply one unsupplied unit of the product, lowest item_no first.
	supplyQuery := `
		UPDATE ordered_items SET supplied_at = now()
		WHERE id = (
			SELECT id FROM ordered_items
			WHERE order_id = $1 AND product_id = $2 AND supplied_at IS NULL
			ORDER BY item_no
			LIMIT 1
		)
	`
	tag, err := tx.Exec(ctx, supplyQuery, orderID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to supply item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("unsupplied item of product %d in order %d: %w",
			productID, orderID, domain.ErrNotFound)
	}

	// The guarded update and the supply above share one transaction, so a
	// concurrent supply of another item in the same order cannot race the
	// all-items-supplied check.
	completeQuery := `
		UPDATE orders SET completed_at = now(), canceled_at = NULL
		WHERE order_id = $1 AND (
			SELECT COUNT(item_no) = COUNT(supplied_at)
			FROM ordered_items WHERE order_id = $1
		)
		RETURNING order_id
	`
	var completedID int
	completed := true
	if err := tx.QueryRow(ctx, completeQuery, orderID).Scan(&completedID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("failed to auto-complete order: %w", err)
		}
		completed = false
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return completed, nil
}

func (r *orderRepository) SupplyAllAndComplete(ctx context.Context, orderID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Only unsupplied rows are touched: supplied_at moves from null to a
	// timestamp once and is never overwritten.
	supplyQuery := `
		UPDATE ordered_items SET supplied_at = now()
		WHERE order_id = $1 AND supplied_at IS NULL
	`
	if _, err := tx.Exec(ctx, supplyQuery, orderID); err != nil {
		return fmt.Errorf("failed to supply items: %w", err)
	}

	completeQuery := `UPDATE orders SET completed_at = now(), canceled_at = NULL WHERE order_id = $1`
	tag, err := tx.Exec(ctx, completeQuery, orderID)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) ByOrderID(ctx context.Context, orderID int) (*domain.Order, error) {
	query := `
		SELECT order_id, ordered_at, canceled_at, completed_at
		FROM orders
		WHERE order_id = $1
	`
	var order domain.Order
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&order.OrderID, &order.OrderedAt, &order.CanceledAt, &order.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) ItemsByOrderID(ctx context.Context, orderID int) ([]domain.OrderedItem, error) {
	query := `
		SELECT order_id, item_no, product_id, supplied_at
		FROM ordered_items
		WHERE order_id = $1
		ORDER BY item_no
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ordered items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderedItem
	for rows.Next() {
		var item domain.OrderedItem
		if err := rows.Scan(&item.OrderID, &item.ItemNo, &item.ProductID, &item.SuppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ordered item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
