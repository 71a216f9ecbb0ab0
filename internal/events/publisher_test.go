package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, queue: DefaultQueue}

	err := p.Publish(context.Background(), ChartEvent{Type: TypeLayoutSaved, ChartID: "chart_1", Version: 3, TotalSeats: 98})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, DefaultQueue, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, TypeLayoutSaved, msg.Type)

	var got ChartEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "chart_1", got.ChartID)
	assert.Equal(t, int32(3), got.Version)
	assert.False(t, got.OccurredAt.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishError(t *testing.T) {
	p := &AMQPPublisher{ch: &fakeChannel{err: errors.New("channel closed")}, queue: DefaultQueue}
	err := p.Publish(context.Background(), ChartEvent{Type: TypeChartDeleted, ChartID: "chart_1"})
	assert.ErrorContains(t, err, "chart.deleted")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ChartEvent{}))
}
