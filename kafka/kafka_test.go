package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRefundProcessed(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event RefundProcessedEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.EventType != EventTypeRefundProcessed {
			return errors.New("event type not set")
		}
		if event.RefundID != 7 || !event.FullRefund {
			return errors.New("unexpected payload")
		}
		return nil
	})

	publisher := NewPublisherWithProducer(producer)
	defer publisher.Close()

	err := publisher.PublishRefundProcessed(context.Background(), RefundProcessedEvent{
		EventID:     "evt-1",
		RefundID:    7,
		OrderID:     3,
		CashAmount:  90000,
		ItemIDs:     []uint{1, 2},
		FullRefund:  true,
		ProcessedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestPublishRefundProcessed_ProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewPublisherWithProducer(producer)
	defer publisher.Close()

	err := publisher.PublishRefundProcessed(context.Background(), RefundProcessedEvent{RefundID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func orderPaidMessage(t *testing.T, eventType string, event OrderPaidEvent) *sarama.ConsumerMessage {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{Topic: TopicOrderPaid, Value: body}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("event_id"), Value: []byte(event.EventID)},
		}
	}
	return msg
}

func TestConsumer_DispatchesOrderPaid(t *testing.T) {
	c := newConsumer(nil, "settlement", []string{TopicOrderPaid})

	var got OrderPaidEvent
	c.RegisterHandler(EventTypeOrderPaid, func(ctx context.Context, event OrderPaidEvent) error {
		got = event
		return nil
	})

	err := c.handleMessage(context.Background(), orderPaidMessage(t, EventTypeOrderPaid, OrderPaidEvent{EventID: "e1", OrderID: 42, UserID: 9}))
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.OrderID)
	assert.Equal(t, uint(9), got.UserID)
}

func TestConsumer_Rejections(t *testing.T) {
	handlerErr := errors.New("db down")

	tests := []struct {
		name      string
		eventType string
		register  bool
		value     []byte
		wantErr   error
	}{
		{name: "missing event type", wantErr: errMissingEventType},
		{name: "no handler", eventType: EventTypeOrderPaid, wantErr: errNoHandler},
		{name: "handler error", eventType: EventTypeOrderPaid, register: true, wantErr: handlerErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConsumer(nil, "settlement", []string{TopicOrderPaid})
			if tt.register {
				c.RegisterHandler(EventTypeOrderPaid, func(context.Context, OrderPaidEvent) error {
					return handlerErr
				})
			}

			err := c.handleMessage(context.Background(), orderPaidMessage(t, tt.eventType, OrderPaidEvent{OrderID: 1}))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConsumer_MalformedPayload(t *testing.T) {
	c := newConsumer(nil, "settlement", []string{TopicOrderPaid})
	c.RegisterHandler(EventTypeOrderPaid, func(context.Context, OrderPaidEvent) error {
		t.Fatal("handler must not run")
		return nil
	})

	msg := orderPaidMessage(t, EventTypeOrderPaid, OrderPaidEvent{})
	msg.Value = []byte("{not json")

	assert.Error(t, c.handleMessage(context.Background(), msg))
}
