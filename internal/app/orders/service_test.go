package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exflikt/murchace/internal/broadcast"
	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

// memoryRepo reimplements the lifecycle semantics in memory, including the
// auto-complete check that the real repository performs inside one
// transaction.
type memoryRepo struct {
	nextID int
	orders map[int]*domain.Order
	items  map[int][]domain.OrderedItem
	fail   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: map[int]*domain.Order{},
		items:  map[int][]domain.OrderedItem{},
	}
}

func (m *memoryRepo) Issue(_ context.Context, productIDs []int) (int, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	m.nextID++
	id := m.nextID
	m.orders[id] = &domain.Order{OrderID: id, OrderedAt: time.Now()}
	for i, pid := range productIDs {
		m.items[id] = append(m.items[id], domain.OrderedItem{OrderID: id, ItemNo: i, ProductID: pid})
	}
	return id, nil
}

func (m *memoryRepo) Cancel(_ context.Context, orderID int) error {
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	o.CanceledAt = &now
	o.CompletedAt = nil
	return nil
}

func (m *memoryRepo) Reset(_ context.Context, orderID int) error {
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.CanceledAt = nil
	o.CompletedAt = nil
	return nil
}

func (m *memoryRepo) SupplyAndCompleteIfDone(_ context.Context, orderID, productID int) (bool, error) {
	items := m.items[orderID]
	supplied := false
	for i := range items {
		if items[i].ProductID == productID && items[i].SuppliedAt == nil {
			now := time.Now()
			items[i].SuppliedAt = &now
			supplied = true
			break
		}
	}
	if !supplied {
		return false, domain.ErrNotFound
	}
	for i := range items {
		if items[i].SuppliedAt == nil {
			return false, nil
		}
	}
	now := time.Now()
	m.orders[orderID].CompletedAt = &now
	m.orders[orderID].CanceledAt = nil
	return true, nil
}

func (m *memoryRepo) SupplyAllAndComplete(_ context.Context, orderID int) error {
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	items := m.items[orderID]
	now := time.Now()
	for i := range items {
		if items[i].SuppliedAt == nil {
			items[i].SuppliedAt = &now
		}
	}
	o.CompletedAt = &now
	o.CanceledAt = nil
	return nil
}

func (m *memoryRepo) ByOrderID(_ context.Context, orderID int) (*domain.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (m *memoryRepo) ItemsByOrderID(_ context.Context, orderID int) ([]domain.OrderedItem, error) {
	return m.items[orderID], nil
}

type capturePublisher struct {
	events []interfaces.OrderEvent
	err    error
}

func (c *capturePublisher) PublishOrderEvent(_ context.Context, ev interfaces.OrderEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func newTestService(repo interfaces.OrderRepository, pub interfaces.EventPublisher) *Service {
	flags := broadcast.New(domain.FlagOriginal)
	return NewService(repo, flags, pub, zerolog.Nop())
}

func recvFlag(t *testing.T, rx *broadcast.Receiver[domain.ModifiedFlag]) domain.ModifiedFlag {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	flag, err := rx.Recv(ctx)
	require.NoError(t, err)
	return flag
}

func TestPlaceOrderBroadcastsIncoming(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	rx := svc.Flags().Attach()
	defer rx.Close()

	orderID, err := svc.PlaceOrder(context.Background(), []int{10, 10, 20})
	require.NoError(t, err)
	assert.Equal(t, 1, orderID)

	assert.Equal(t, domain.FlagIncoming, recvFlag(t, rx))

	order, err := repo.ByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, order.Incoming())

	items, err := repo.ItemsByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, i, it.ItemNo)
		assert.False(t, it.Supplied())
	}
}

func TestPlaceOrderFailurePublishesNothing(t *testing.T) {
	repo := newMemoryRepo()
	repo.fail = errors.New("insert failed")
	svc := newTestService(repo, nil)
	rx := svc.Flags().Attach()
	defer rx.Close()

	_, err := svc.PlaceOrder(context.Background(), []int{10})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Supplying items one at a time: an order of [A, A, B] takes three supplies,
// and only the last one auto-completes the order.
func TestSupplyProductAutoCompletesOnLastItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	orderID, err := svc.PlaceOrder(ctx, []int{10, 10, 20})
	require.NoError(t, err)

	rx := svc.Flags().Attach()
	defer rx.Close()

	completed, err := svc.SupplyProduct(ctx, orderID, 10)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, domain.FlagSupplied, recvFlag(t, rx))

	completed, err = svc.SupplyProduct(ctx, orderID, 10)
	require.NoError(t, err)
	assert.False(t, completed)
	recvFlag(t, rx)

	completed, err = svc.SupplyProduct(ctx, orderID, 20)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, domain.FlagSupplied|domain.FlagResolved, recvFlag(t, rx))

	order, err := repo.ByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, order.Resolved())
	assert.NotNil(t, order.CompletedAt)
	assert.Nil(t, order.CanceledAt)
}

func TestSupplyProductNoUnsuppliedItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	orderID, err := svc.PlaceOrder(ctx, []int{10})
	require.NoError(t, err)

	_, err = svc.SupplyProduct(ctx, orderID, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.SupplyProduct(ctx, orderID, 10)
	require.NoError(t, err)
	// The single unit is already supplied; a second supply has nothing left.
	_, err = svc.SupplyProduct(ctx, orderID, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteOrderSuppliesRemaining(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	orderID, err := svc.PlaceOrder(ctx, []int{10, 20})
	require.NoError(t, err)
	_, err = svc.SupplyProduct(ctx, orderID, 10)
	require.NoError(t, err)

	rx := svc.Flags().Attach()
	defer rx.Close()

	require.NoError(t, svc.CompleteOrder(ctx, orderID))
	assert.Equal(t, domain.FlagSupplied|domain.FlagResolved, recvFlag(t, rx))

	items, err := repo.ItemsByOrderID(ctx, orderID)
	require.NoError(t, err)
	for _, it := range items {
		assert.True(t, it.Supplied())
	}
}

func TestCancelAndResetRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	orderID, err := svc.PlaceOrder(ctx, []int{10})
	require.NoError(t, err)

	rx := svc.Flags().Attach()
	defer rx.Close()

	require.NoError(t, svc.Cancel(ctx, orderID))
	assert.Equal(t, domain.FlagResolved, recvFlag(t, rx))

	order, err := repo.ByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, order.Resolved())
	assert.NotNil(t, order.CanceledAt)
	assert.Nil(t, order.CompletedAt)

	require.NoError(t, svc.Reset(ctx, orderID))
	assert.Equal(t, domain.FlagPutBack, recvFlag(t, rx))

	order, err = repo.ByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, order.Incoming())
}

func TestCancelUnknownOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	assert.ErrorIs(t, svc.Cancel(context.Background(), 404), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Reset(context.Background(), 404), domain.ErrNotFound)
}

func TestEventMirrorReceivesEachMutation(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	orderID, err := svc.PlaceOrder(ctx, []int{10})
	require.NoError(t, err)
	require.NoError(t, svc.CompleteOrder(ctx, orderID))

	require.Len(t, pub.events, 2)
	assert.Equal(t, orderID, pub.events[0].OrderID)
	assert.Equal(t, "incoming", pub.events[0].Flag)
	assert.False(t, pub.events[0].Completed)
	assert.Equal(t, "supplied|resolved", pub.events[1].Flag)
	assert.True(t, pub.events[1].Completed)
}

func TestEventMirrorFailureDoesNotFailMutation(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturePublisher{err: fmt.Errorf("broker down")}
	svc := newTestService(repo, pub)

	_, err := svc.PlaceOrder(context.Background(), []int{10})
	assert.NoError(t, err)
}
