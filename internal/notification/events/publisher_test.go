package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
)

type captureProducer struct {
	records []*kgo.Record
	err     error
}

func (c *captureProducer) Publish(_ context.Context, records ...*kgo.Record) error {
	c.records = append(c.records, records...)
	return c.err
}

func TestPublishOutcomes_KeysByRequest(t *testing.T) {
	producer := &captureProducer{}
	requestID := id.NewRequestID()
	donorID := id.NewDonorID()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	err := NewPublisher(producer).PublishOutcomes(context.Background(), []notification.Record{
		{ID: id.NewNotificationID(), RequestID: requestID, DonorID: donorID, DeliveryStatus: notification.StatusSent, CreatedAt: now},
		{ID: id.NewNotificationID(), RequestID: requestID, DonorID: id.NewDonorID(), DeliveryStatus: notification.StatusFailed, CreatedAt: now},
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 2)

	first := producer.records[0]
	assert.Equal(t, requestID.String(), string(first.Key))
	assert.Equal(t, now, first.Timestamp)
	require.Len(t, first.Headers, 1)
	assert.Equal(t, EventType, string(first.Headers[0].Value))

	var evt OutcomeEvent
	require.NoError(t, json.Unmarshal(first.Value, &evt))
	assert.Equal(t, donorID.String(), evt.DonorID)
	assert.Equal(t, "sent", evt.DeliveryStatus)
}

func TestPublishOutcomes_Empty(t *testing.T) {
	producer := &captureProducer{err: errors.New("unreachable")}
	require.NoError(t, NewPublisher(producer).PublishOutcomes(context.Background(), nil))
	assert.Empty(t, producer.records)
}

func TestPublishOutcomes_ProducerError(t *testing.T) {
	producer := &captureProducer{err: errors.New("broker down")}
	err := NewPublisher(producer).PublishOutcomes(context.Background(), []notification.Record{
		{ID: id.NewNotificationID(), RequestID: id.NewRequestID(), DonorID: id.NewDonorID(), DeliveryStatus: notification.StatusSkipped},
	})
	assert.Error(t, err)
}
