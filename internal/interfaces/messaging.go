package interfaces

import (
	"context"
	"time"

	"github.com/exflikt/murchace/internal/domain"
)

// OrderEvent mirrors one in-process queue-change broadcast to out-of-process
// consumers such as external display boards.
type OrderEvent struct {
	OrderID    int       `json:"order_id"`
	Flag       string    `json:"flag"`
	Completed  bool      `json:"completed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderEvent builds the wire form of a queue-change notification.
func NewOrderEvent(orderID int, flag domain.ModifiedFlag, occurredAt time.Time) OrderEvent {
	return OrderEvent{
		OrderID:    orderID,
		Flag:       flag.String(),
		Completed:  flag.Has(domain.FlagResolved),
		OccurredAt: occurredAt,
	}
}

// EventPublisher pushes order events to an external broker. Delivery is best
// effort: a publish failure must not fail the originating mutation.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}
