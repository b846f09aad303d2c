// Package stat aggregates sales figures for the operator: per-product sales,
// overall totals, and service-time averages, plus a raw CSV export of every
// order for after-event bookkeeping.
package stat

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/exflikt/murchace/internal/adapter/postgres"
	"github.com/exflikt/murchace/internal/domain"
)

const (
	// Canceled orders never count as sales. Completed and still-incoming
	// orders both do; an incoming order is money already committed at the
	// register.
	queryProductSales = `
		SELECT i.product_id, p.name, p.price,
		       COUNT(i.product_id) AS total_count,
		       COUNT(i.product_id) FILTER (WHERE o.ordered_at::date = now()::date) AS today_count
		FROM ordered_items i
		JOIN orders o ON o.order_id = i.order_id
		JOIN products p ON p.product_id = i.product_id
		WHERE o.canceled_at IS NULL
		GROUP BY i.product_id, p.name, p.price
		ORDER BY i.product_id ASC
	`

	queryServiceTime = `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - ordered_at))), 0),
		       COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - ordered_at)))
		                FILTER (WHERE now() - completed_at < interval '30 minutes'), 0)
		FROM orders
		WHERE completed_at IS NOT NULL
	`

	queryOrderCounts = `
		SELECT COUNT(order_id) FILTER (WHERE completed_at IS NOT NULL),
		       COUNT(order_id) FILTER (WHERE canceled_at IS NOT NULL)
		FROM orders
	`

	queryExportOrders = `
		SELECT o.order_id, o.ordered_at, o.canceled_at, o.completed_at,
		       i.item_no, i.product_id, p.name, p.price, i.supplied_at
		FROM orders o
		JOIN ordered_items i ON i.order_id = o.order_id
		JOIN products p ON p.product_id = i.product_id
		ORDER BY o.order_id ASC, i.item_no ASC
	`
)

// ProductSales is one product's sales line in the summary.
type ProductSales struct {
	ProductID   int    `json:"product_id"`
	Name        string `json:"name"`
	Price       int    `json:"price"`
	TotalCount  int    `json:"total_count"`
	TotalSales  string `json:"total_sales"`
	TodayCount  int    `json:"today_count"`
	TodaySales  string `json:"today_sales"`
	totalAmount int
	todayAmount int
}

// Summary is the operator dashboard payload.
type Summary struct {
	Products        []ProductSales `json:"products"`
	TotalCount      int            `json:"total_count"`
	TotalSales      string         `json:"total_sales"`
	TodayCount      int            `json:"today_count"`
	TodaySales      string         `json:"today_sales"`
	CompletedOrders int            `json:"completed_orders"`
	CanceledOrders  int            `json:"canceled_orders"`
	AvgServiceTime  string         `json:"avg_service_time"`
	RecentAvgTime   string         `json:"recent_avg_time"`
}

type Service struct {
	db postgres.DB
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

// Summarize builds the sales summary from current state.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	rows, err := s.db.Query(ctx, queryProductSales)
	if err != nil {
		return nil, fmt.Errorf("failed to query product sales: %w", err)
	}
	defer rows.Close()

	summary := &Summary{Products: []ProductSales{}}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Price, &ps.TotalCount, &ps.TodayCount); err != nil {
			return nil, fmt.Errorf("failed to scan product sales row: %w", err)
		}
		ps.totalAmount = ps.TotalCount * ps.Price
		ps.todayAmount = ps.TodayCount * ps.Price
		ps.TotalSales = domain.ToPriceStr(ps.totalAmount)
		ps.TodaySales = domain.ToPriceStr(ps.todayAmount)

		summary.Products = append(summary.Products, ps)
		summary.TotalCount += ps.TotalCount
		summary.TodayCount += ps.TodayCount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalAmount, todayAmount := 0, 0
	for _, ps := range summary.Products {
		totalAmount += ps.totalAmount
		todayAmount += ps.todayAmount
	}
	summary.TotalSales = domain.ToPriceStr(totalAmount)
	summary.TodaySales = domain.ToPriceStr(todayAmount)

	var avgAll, avgRecent float64
	if err := s.db.QueryRow(ctx, queryServiceTime).Scan(&avgAll, &avgRecent); err != nil {
		return nil, fmt.Errorf("failed to query service time: %w", err)
	}
	summary.AvgServiceTime = domain.FormatServiceTime(int(avgAll))
	summary.RecentAvgTime = domain.FormatServiceTime(int(avgRecent))

	if err := s.db.QueryRow(ctx, queryOrderCounts).Scan(&summary.CompletedOrders, &summary.CanceledOrders); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	return summary, nil
}

var exportHeader = []string{
	"order_id", "ordered_at", "canceled_at", "completed_at",
	"item_no", "product_id", "name", "price", "supplied_at",
}

// ExportOrdersCSV streams every order item as one CSV record. Rows are
// written as they are scanned, never buffered whole.
func (s *Service) ExportOrdersCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.db.Query(ctx, queryExportOrders)
	if err != nil {
		return fmt.Errorf("failed to query orders for export: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for rows.Next() {
		var orderID, itemNo, productID, price int
		var name string
		var orderedAt time.Time
		var canceledAt, completedAt, suppliedAt *time.Time
		if err := rows.Scan(&orderID, &orderedAt, &canceledAt, &completedAt,
			&itemNo, &productID, &name, &price, &suppliedAt); err != nil {
			return fmt.Errorf("failed to scan export row: %w", err)
		}
		record := []string{
			strconv.Itoa(orderID),
			orderedAt.Format(time.RFC3339),
			formatTimePtr(canceledAt),
			formatTimePtr(completedAt),
			strconv.Itoa(itemNo),
			strconv.Itoa(productID),
			name,
			strconv.Itoa(price),
			formatTimePtr(suppliedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// ExportOrdersFile dumps the order log CSV to path, replacing any previous
// dump. Used for the end-of-day export on shutdown.
func (s *Service) ExportOrdersFile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := s.ExportOrdersCSV(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
