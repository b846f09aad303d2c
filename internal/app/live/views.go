package live

import "time"

// The live views are plain data; turning them into markup or sound is the
// client's job.

// OrderItemView is one product line inside an order card.
type OrderItemView struct {
	ProductID  int     `json:"product_id"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Price      string  `json:"price,omitempty"`
	SuppliedAt *string `json:"supplied_at"`
}

// OrderView is one order card, grouped from the flat query rows.
type OrderView struct {
	OrderID     int             `json:"order_id"`
	OrderedAt   string          `json:"ordered_at"`
	CanceledAt  *string         `json:"canceled_at,omitempty"`
	CompletedAt *string         `json:"completed_at,omitempty"`
	Items       []OrderItemView `json:"items"`
	TotalPrice  string          `json:"total_price,omitempty"`
}

// QueueOrderView is one order waiting for a given product.
type QueueOrderView struct {
	OrderID   int    `json:"order_id"`
	Count     int    `json:"count"`
	OrderedAt string `json:"ordered_at"`
}

// ProductQueueView is the per-product hand-out queue shown to kitchen staff.
type ProductQueueView struct {
	ProductID int              `json:"product_id"`
	Name      string           `json:"name"`
	Filename  string           `json:"filename"`
	Orders    []QueueOrderView `json:"orders"`
}

// WaitEstimateView is the customer-facing wait estimate.
type WaitEstimateView struct {
	EstimateSeconds int    `json:"estimate_seconds"`
	Estimate        string `json:"estimate"`
	WaitingOrders   int    `json:"waiting_orders"`
}

func toClock(t time.Time) string {
	return t.Local().Format("15:04:05")
}

func toClockPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := toClock(*t)
	return &s
}
