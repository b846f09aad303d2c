package register

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/app/orders"
	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

// ErrEmptySession is returned when a cashier tries to place an order with
// nothing in it.
var ErrEmptySession = fmt.Errorf("order session is empty")

// Service glues the in-memory sessions to the product catalogue and the
// order lifecycle.
type Service struct {
	sessions *Sessions
	products interfaces.ProductRepository
	orders   *orders.Service
	logger   zerolog.Logger
}

func NewService(sessions *Sessions, products interfaces.ProductRepository, orders *orders.Service, logger zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		products: products,
		orders:   orders,
		logger:   logger,
	}
}

// StartSession opens a fresh session for a cashier and returns the key the
// transport should store in a cookie.
func (s *Service) StartSession() uuid.UUID {
	key := s.sessions.Create()
	s.logger.Debug().Str("session_key", key.String()).Msg("order session started")
	return key
}

// Session resolves a session key, reporting domain.ErrNotFound for unknown or
// already-placed sessions.
func (s *Service) Session(key uuid.UUID) (*OrderSession, error) {
	sess, ok := s.sessions.Get(key)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", key, domain.ErrNotFound)
	}
	return sess, nil
}

// AddItem looks the product up and appends one unit to the session.
func (s *Service) AddItem(ctx context.Context, key uuid.UUID, productID int) (*OrderSession, error) {
	sess, err := s.Session(key)
	if err != nil {
		return nil, err
	}
	product, err := s.products.ByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	sess.Add(*product)
	return sess, nil
}

// RemoveItem deletes one item instance from the session.
func (s *Service) RemoveItem(key uuid.UUID, itemID uuid.UUID) (*OrderSession, error) {
	sess, err := s.Session(key)
	if err != nil {
		return nil, err
	}
	sess.Delete(itemID)
	return sess, nil
}

// ClearItems empties the session without destroying it.
func (s *Service) ClearItems(key uuid.UUID) (*OrderSession, error) {
	sess, err := s.Session(key)
	if err != nil {
		return nil, err
	}
	sess.Clear()
	return sess, nil
}

// PlaceOrder commits the session as a new order, destroying the session on
// success. The confirmation summary of the destroyed session is returned so
// the transport can render the issued-order receipt.
func (s *Service) PlaceOrder(ctx context.Context, key uuid.UUID) (int, *OrderSession, error) {
	sess, err := s.Session(key)
	if err != nil {
		return 0, nil, err
	}
	if sess.TotalCount() == 0 {
		return 0, nil, ErrEmptySession
	}

	// The session leaves the registry before the order is issued so a double
	// submit cannot place the same cart twice.
	sess, ok := s.sessions.Pop(key)
	if !ok {
		return 0, nil, fmt.Errorf("session %s: %w", key, domain.ErrNotFound)
	}

	orderID, err := s.orders.PlaceOrder(ctx, sess.ProductIDs())
	if err != nil {
		return 0, nil, err
	}
	return orderID, sess, nil
}
