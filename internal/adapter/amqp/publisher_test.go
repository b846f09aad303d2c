package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	exchanges []string
	contexts  []context.Context
	closed    bool
	pubErr    error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	if !durable {
		return errors.New("exchange must be durable")
	}
	return nil
}

func (c *fakeChannel) Publish(ctx context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.pubErr != nil {
		return c.pubErr
	}
	c.contexts = append(c.contexts, ctx)
	c.exchanges = append(c.exchanges, exchange)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeConn struct {
	ch    *fakeChannel
	chErr error
}

func (c *fakeConn) Channel() (Channel, error) {
	if c.chErr != nil {
		return nil, c.chErr
	}
	return c.ch, nil
}

func (c *fakeConn) Close() error   { return nil }
func (c *fakeConn) IsClosed() bool { return false }

func TestPublishOrderEvent(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(&fakeConn{ch: ch}, "murchace.orders")

	ev := interfaces.NewOrderEvent(7, domain.FlagSupplied|domain.FlagResolved, time.Now().UTC())
	require.NoError(t, pub.PublishOrderEvent(context.Background(), ev))

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"murchace.orders:fanout"}, ch.declared)
	assert.Equal(t, []string{"murchace.orders"}, ch.exchanges)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.True(t, ch.closed)

	var got interfaces.OrderEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, 7, got.OrderID)
	assert.Equal(t, "supplied|resolved", got.Flag)
	assert.True(t, got.Completed)
}

func TestPublishOrderEventChannelFailure(t *testing.T) {
	pub := NewPublisher(&fakeConn{chErr: errors.New("broker gone")}, "murchace.orders")
	err := pub.PublishOrderEvent(context.Background(), interfaces.OrderEvent{})
	assert.Error(t, err)
}

func TestPublishOrderEventPublishFailure(t *testing.T) {
	ch := &fakeChannel{pubErr: errors.New("publish refused")}
	pub := NewPublisher(&fakeConn{ch: ch}, "murchace.orders")

	err := pub.PublishOrderEvent(context.Background(), interfaces.OrderEvent{})
	assert.Error(t, err)
	assert.True(t, ch.closed)
}

// The caller's context must reach the wire publish so a canceled request does
// not leave a publish in flight.
func TestPublishOrderEventThreadsContext(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(&fakeConn{ch: ch}, "murchace.orders")

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	require.NoError(t, pub.PublishOrderEvent(ctx, interfaces.OrderEvent{OrderID: 1}))
	require.Len(t, ch.contexts, 1)
	assert.Equal(t, "marker", ch.contexts[0].Value(ctxKey{}))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.PublishOrderEvent(canceled, interfaces.OrderEvent{OrderID: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, ch.published, 1, "canceled publish must not reach the exchange")
}
