package domain

import "time"

// Order is one committed register order. An order is "incoming" while both
// resolution timestamps are null and "resolved" once exactly one of them is
// set. CanceledAt and CompletedAt are never both non-null.
type Order struct {
	OrderID     int
	OrderedAt   time.Time
	CanceledAt  *time.Time
	CompletedAt *time.Time
}

// Incoming reports whether the order is still waiting to be handed out.
func (o Order) Incoming() bool {
	return o.CanceledAt == nil && o.CompletedAt == nil
}

// Resolved reports whether the order has been completed or canceled.
func (o Order) Resolved() bool {
	return !o.Incoming()
}

// OrderedItem is one unit of product inside an order. ItemNo is the 0-based
// per-order sequence number assigned at issuance. SuppliedAt transitions from
// null to a timestamp exactly once and is never unset.
type OrderedItem struct {
	OrderID    int
	ItemNo     int
	ProductID  int
	SuppliedAt *time.Time
}

// Supplied reports whether the item has been handed to the customer.
func (i OrderedItem) Supplied() bool {
	return i.SuppliedAt != nil
}
