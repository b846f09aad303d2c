package interfaces

import (
	"context"

	"github.com/exflikt/murchace/internal/domain"
)

// OrderRepository is the persisted lifecycle store for orders and their
// items. Every multi-statement mutation runs in a single transaction; on
// failure the whole operation rolls back and the error propagates.
type OrderRepository interface {
	// Issue creates the next order: one orders row in incoming state plus one
	// ordered_items row per unit of product, item_no assigned 0..n-1 in the
	// order given. Returns the newly assigned order id.
	Issue(ctx context.Context, productIDs []int) (int, error)

	// Cancel sets canceled_at and clears completed_at.
	Cancel(ctx context.Context, orderID int) error

	// Reset clears both resolution timestamps, putting the order back into
	// the incoming queue with its original ordered_at intact.
	Reset(ctx context.Context, orderID int) error

	// SupplyAndCompleteIfDone marks one unsupplied item of the given product
	// as supplied and, in the same transaction, completes the order when every
	// item of the order is now supplied. Reports whether auto-completion
	// happened.
	SupplyAndCompleteIfDone(ctx context.Context, orderID, productID int) (bool, error)

	// SupplyAllAndComplete marks every remaining item supplied and completes
	// the order unconditionally, in one transaction.
	SupplyAllAndComplete(ctx context.Context, orderID int) error

	ByOrderID(ctx context.Context, orderID int) (*domain.Order, error)
	ItemsByOrderID(ctx context.Context, orderID int) ([]domain.OrderedItem, error)
}

// ProductRepository manages the product catalogue.
type ProductRepository interface {
	SelectAll(ctx context.Context) ([]domain.Product, error)
	ByProductID(ctx context.Context, productID int) (*domain.Product, error)
	Insert(ctx context.Context, p domain.Product) (*domain.Product, error)

	// Update replaces the product row. Moving a product to an occupied
	// product id is detected by a guarded conditional update and reported as
	// domain.ErrConflict.
	Update(ctx context.Context, productID int, p domain.Product) (*domain.Product, error)

	// Delete removes the product and, in the same transaction, the
	// ordered_items rows referencing it.
	Delete(ctx context.Context, productID int) error

	// SeedIfEmpty loads the catalogue from a CSV file when the table has no
	// rows yet.
	SeedIfEmpty(ctx context.Context, csvPath string) error
}
