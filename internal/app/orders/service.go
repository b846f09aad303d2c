// Package orders implements the order lifecycle: incoming → completed or
// canceled (both resolved) → back to incoming via reset. Every successful
// mutation publishes exactly one modified-flag broadcast after commit; failed
// mutations publish nothing.
package orders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/broadcast"
	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

type Service struct {
	repo   interfaces.OrderRepository
	flags  *broadcast.Broadcaster[domain.ModifiedFlag]
	events interfaces.EventPublisher // optional mirror to an external broker
	logger zerolog.Logger
}

func NewService(repo interfaces.OrderRepository, flags *broadcast.Broadcaster[domain.ModifiedFlag], events interfaces.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		flags:  flags,
		events: events,
		logger: logger,
	}
}

// Flags exposes the broadcast channel the live streams attach to.
func (s *Service) Flags() *broadcast.Broadcaster[domain.ModifiedFlag] {
	return s.flags
}

// PlaceOrder commits a batch of product units as a new order and announces it
// to the incoming queues.
func (s *Service) PlaceOrder(ctx context.Context, productIDs []int) (int, error) {
	orderID, err := s.repo.Issue(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue order")
		return 0, err
	}
	s.logger.Info().Int("order_id", orderID).Int("items", len(productIDs)).Msg("order placed")
	s.publish(ctx, orderID, domain.FlagIncoming)
	return orderID, nil
}

// Cancel resolves the order as canceled.
func (s *Service) Cancel(ctx context.Context, orderID int) error {
	if err := s.repo.Cancel(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info().Int("order_id", orderID).Msg("order canceled")
	s.publish(ctx, orderID, domain.FlagResolved)
	return nil
}

// Reset puts a resolved order back into the incoming queue.
func (s *Service) Reset(ctx context.Context, orderID int) error {
	if err := s.repo.Reset(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info().Int("order_id", orderID).Msg("order put back")
	s.publish(ctx, orderID, domain.FlagPutBack)
	return nil
}

// SupplyProduct hands out one unit of the product. When that was the last
// unsupplied item of the order, the order auto-completes inside the same
// transaction; the returned bool reports whether that happened.
func (s *Service) SupplyProduct(ctx context.Context, orderID, productID int) (bool, error) {
	completed, err := s.repo.SupplyAndCompleteIfDone(ctx, orderID, productID)
	if err != nil {
		return false, err
	}

	flag := domain.FlagSupplied
	if completed {
		flag |= domain.FlagResolved
	}
	s.logger.Info().
		Int("order_id", orderID).
		Int("product_id", productID).
		Bool("completed", completed).
		Msg("item supplied")
	s.publish(ctx, orderID, flag)
	return completed, nil
}

// CompleteOrder supplies every remaining item and resolves the order as
// completed.
func (s *Service) CompleteOrder(ctx context.Context, orderID int) error {
	if err := s.repo.SupplyAllAndComplete(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info().Int("order_id", orderID).Msg("order completed")
	s.publish(ctx, orderID, domain.FlagSupplied|domain.FlagResolved)
	return nil
}

// publish runs only after a successful commit. The in-process broadcast is
// the delivery the live views rely on; the broker mirror is best effort and
// never fails the mutation.
func (s *Service) publish(ctx context.Context, orderID int, flag domain.ModifiedFlag) {
	s.flags.Send(flag)

	if s.events == nil {
		return
	}
	ev := interfaces.NewOrderEvent(orderID, flag, time.Now().UTC())
	if err := s.events.PublishOrderEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Int("order_id", orderID).Msg("event mirror publish failed")
	}
}
