// Package live derives the display views from current persisted state. Each
// loader runs one aggregate query sorted by its grouping key and folds the
// flat rows into cards in a single pass; the stream handlers re-run a loader
// on every modified-flag broadcast.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/exflikt/murchace/internal/adapter/postgres"
	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/rowgroup"
)

// Queries feeding the single-pass grouping must keep the grouping key
// monotonic: order_id for the order views, product_id for the queue view.
const (
	queryIncomingOrders = `
		SELECT o.order_id, o.ordered_at, i.product_id,
		       (CASE WHEN COUNT(i.product_id) = COUNT(i.supplied_at)
		             THEN MAX(i.supplied_at) END) AS supplied_at,
		       COUNT(i.product_id) AS count, p.name
		FROM orders o
		JOIN ordered_items i ON i.order_id = o.order_id
		JOIN products p ON p.product_id = i.product_id
		WHERE o.canceled_at IS NULL AND o.completed_at IS NULL
		GROUP BY o.order_id, o.ordered_at, i.product_id, p.name
		ORDER BY o.order_id ASC, i.product_id ASC
	`

	queryResolvedOrders = `
		SELECT o.order_id, o.ordered_at, o.canceled_at, o.completed_at,
		       i.product_id,
		       (CASE WHEN COUNT(i.product_id) = COUNT(i.supplied_at)
		             THEN MAX(i.supplied_at) END) AS supplied_at,
		       COUNT(i.product_id) AS count, p.name, p.price
		FROM orders o
		JOIN ordered_items i ON i.order_id = o.order_id
		JOIN products p ON p.product_id = i.product_id
		WHERE o.canceled_at IS NOT NULL OR o.completed_at IS NOT NULL
		GROUP BY o.order_id, o.ordered_at, o.canceled_at, o.completed_at,
		         i.product_id, p.name, p.price
		ORDER BY o.order_id ASC, i.product_id ASC
	`

	queryIncomingItemsByProduct = `
		SELECT i.product_id, p.name, p.filename, i.order_id,
		       COUNT(i.product_id) AS count, o.ordered_at
		FROM ordered_items i
		JOIN products p ON p.product_id = i.product_id
		JOIN orders o ON o.order_id = i.order_id
		WHERE i.supplied_at IS NULL AND o.canceled_at IS NULL AND o.completed_at IS NULL
		GROUP BY i.product_id, p.name, p.filename, i.order_id, o.ordered_at
		ORDER BY i.product_id ASC, i.order_id ASC
	`

	queryRecentServiceTime = `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - ordered_at)))
		       FILTER (WHERE now() - completed_at < interval '30 minutes'), 0)
		FROM orders
		WHERE completed_at IS NOT NULL
	`

	queryWaitingOrderCount = `
		SELECT COUNT(order_id) FROM orders
		WHERE completed_at IS NULL AND canceled_at IS NULL
	`
)

type incomingRow struct {
	orderID    int
	orderedAt  time.Time
	productID  int
	suppliedAt *time.Time
	count      int
	name       string
}

type resolvedRow struct {
	orderID     int
	orderedAt   time.Time
	canceledAt  *time.Time
	completedAt *time.Time
	productID   int
	suppliedAt  *time.Time
	count       int
	name        string
	price       int
}

type queueRow struct {
	productID int
	name      string
	filename  string
	orderID   int
	count     int
	orderedAt time.Time
}

// Service owns one shared accumulation buffer per view. Two re-render passes
// triggered in close succession must not interleave their row writes into the
// same buffer, so each load holds its view's mutex for the whole pass.
type Service struct {
	db postgres.DB

	incomingMu  sync.Mutex
	incomingBuf []incomingRow

	resolvedMu  sync.Mutex
	resolvedBuf []resolvedRow

	queueMu  sync.Mutex
	queueBuf []queueRow
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

// IncomingOrders derives the order cards still waiting to be handed out.
func (s *Service) IncomingOrders(ctx context.Context) ([]OrderView, error) {
	s.incomingMu.Lock()
	defer s.incomingMu.Unlock()

	rows, err := s.db.Query(ctx, queryIncomingOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming orders: %w", err)
	}
	defer rows.Close()

	s.incomingBuf = s.incomingBuf[:0]
	for rows.Next() {
		var r incomingRow
		if err := rows.Scan(&r.orderID, &r.orderedAt, &r.productID, &r.suppliedAt, &r.count, &r.name); err != nil {
			return nil, fmt.Errorf("failed to scan incoming order row: %w", err)
		}
		s.incomingBuf = append(s.incomingBuf, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups, err := rowgroup.Collect(
		func(r incomingRow) int { return r.orderID },
		sliceProducer(s.incomingBuf),
	)
	if err != nil {
		return nil, err
	}

	orders := make([]OrderView, 0, len(groups))
	for _, g := range groups {
		order := OrderView{
			OrderID:   g.Key,
			OrderedAt: toClock(g.Rows[0].orderedAt),
			Items:     make([]OrderItemView, 0, len(g.Rows)),
		}
		for _, r := range g.Rows {
			order.Items = append(order.Items, OrderItemView{
				ProductID:  r.productID,
				Name:       r.name,
				Count:      r.count,
				SuppliedAt: toClockPtr(r.suppliedAt),
			})
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// ResolvedOrders derives the cards of completed and canceled orders,
// including per-order total prices.
func (s *Service) ResolvedOrders(ctx context.Context) ([]OrderView, error) {
	s.resolvedMu.Lock()
	defer s.resolvedMu.Unlock()

	rows, err := s.db.Query(ctx, queryResolvedOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved orders: %w", err)
	}
	defer rows.Close()

	s.resolvedBuf = s.resolvedBuf[:0]
	for rows.Next() {
		var r resolvedRow
		if err := rows.Scan(&r.orderID, &r.orderedAt, &r.canceledAt, &r.completedAt,
			&r.productID, &r.suppliedAt, &r.count, &r.name, &r.price); err != nil {
			return nil, fmt.Errorf("failed to scan resolved order row: %w", err)
		}
		s.resolvedBuf = append(s.resolvedBuf, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups, err := rowgroup.Collect(
		func(r resolvedRow) int { return r.orderID },
		sliceProducer(s.resolvedBuf),
	)
	if err != nil {
		return nil, err
	}

	orders := make([]OrderView, 0, len(groups))
	for _, g := range groups {
		orders = append(orders, resolvedOrderView(g.Key, g.Rows))
	}
	return orders, nil
}

// OneResolvedOrder derives a single resolved order card, used when a mutation
// wants to respond with the card it just resolved.
func (s *Service) OneResolvedOrder(ctx context.Context, orderID int) (*OrderView, error) {
	query := queryResolvedOrders
	// Narrowing to one order keeps the grouping-key precondition trivially
	// intact.
	query = `SELECT * FROM (` + query + `) resolved WHERE order_id = $1`

	rows, err := s.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved order: %w", err)
	}
	defer rows.Close()

	var flat []resolvedRow
	for rows.Next() {
		var r resolvedRow
		if err := rows.Scan(&r.orderID, &r.orderedAt, &r.canceledAt, &r.completedAt,
			&r.productID, &r.suppliedAt, &r.count, &r.name, &r.price); err != nil {
			return nil, fmt.Errorf("failed to scan resolved order row: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("resolved order %d: %w", orderID, domain.ErrNotFound)
	}

	order := resolvedOrderView(orderID, flat)
	return &order, nil
}

// IncomingItemsByProduct derives the hand-out queue: for every product with
// unsupplied items, the orders waiting for it.
func (s *Service) IncomingItemsByProduct(ctx context.Context) ([]ProductQueueView, error) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	rows, err := s.db.Query(ctx, queryIncomingItemsByProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming items: %w", err)
	}
	defer rows.Close()

	s.queueBuf = s.queueBuf[:0]
	for rows.Next() {
		var r queueRow
		if err := rows.Scan(&r.productID, &r.name, &r.filename, &r.orderID, &r.count, &r.orderedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		s.queueBuf = append(s.queueBuf, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups, err := rowgroup.Collect(
		func(r queueRow) int { return r.productID },
		sliceProducer(s.queueBuf),
	)
	if err != nil {
		return nil, err
	}

	queues := make([]ProductQueueView, 0, len(groups))
	for _, g := range groups {
		queue := ProductQueueView{
			ProductID: g.Key,
			Name:      g.Rows[0].name,
			Filename:  g.Rows[0].filename,
			Orders:    make([]QueueOrderView, 0, len(g.Rows)),
		}
		for _, r := range g.Rows {
			queue.Orders = append(queue.Orders, QueueOrderView{
				OrderID:   r.orderID,
				Count:     r.count,
				OrderedAt: toClock(r.orderedAt),
			})
		}
		queues = append(queues, queue)
	}
	return queues, nil
}

// WaitEstimate derives the expected wait from the average service time over
// the last 30 minutes plus the number of orders still waiting. Both reads
// share one transaction so the pair is consistent.
func (s *Service) WaitEstimate(ctx context.Context) (*WaitEstimateView, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var recentAvg float64
	if err := tx.QueryRow(ctx, queryRecentServiceTime).Scan(&recentAvg); err != nil {
		return nil, fmt.Errorf("failed to query service time: %w", err)
	}
	var waiting int
	if err := tx.QueryRow(ctx, queryWaitingOrderCount).Scan(&waiting); err != nil {
		return nil, fmt.Errorf("failed to count waiting orders: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	secs := int(recentAvg)
	estimate := "待ち時間なし"
	if secs > 0 {
		estimate = domain.FormatServiceTime(secs)
	}
	return &WaitEstimateView{
		EstimateSeconds: secs,
		Estimate:        estimate,
		WaitingOrders:   waiting,
	}, nil
}

func resolvedOrderView(orderID int, flat []resolvedRow) OrderView {
	order := OrderView{
		OrderID:     orderID,
		OrderedAt:   toClock(flat[0].orderedAt),
		CanceledAt:  toClockPtr(flat[0].canceledAt),
		CompletedAt: toClockPtr(flat[0].completedAt),
		Items:       make([]OrderItemView, 0, len(flat)),
	}
	totalPrice := 0
	for _, r := range flat {
		totalPrice += r.count * r.price
		order.Items = append(order.Items, OrderItemView{
			ProductID:  r.productID,
			Name:       r.name,
			Count:      r.count,
			Price:      domain.ToPriceStr(r.price),
			SuppliedAt: toClockPtr(r.suppliedAt),
		})
	}
	order.TotalPrice = domain.ToPriceStr(totalPrice)
	return order
}

func sliceProducer[T any](rows []T) func() (T, bool, error) {
	i := 0
	return func() (T, bool, error) {
		if i >= len(rows) {
			var zero T
			return zero, false, nil
		}
		r := rows[i]
		i++
		return r, true, nil
	}
}
