// Package events publishes ledger records as outcome events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"bloodlink/internal/notification"
)

// EventType identifies outcome events in the record header.
const EventType = "notification.outcome"

// Producer is the subset of the Kafka producer used here.
type Producer interface {
	Publish(ctx context.Context, records ...*kgo.Record) error
}

// OutcomeEvent is the wire payload of one event.
type OutcomeEvent struct {
	EventType      string    `json:"event_type"`
	NotificationID string    `json:"notification_id"`
	RequestID      string    `json:"request_id"`
	DonorID        string    `json:"donor_id"`
	DeliveryStatus string    `json:"delivery_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher implements notification.EventPublisher. Records are keyed by
// request id so a request's events stay in one partition.
type Publisher struct {
	producer Producer
}

func NewPublisher(producer Producer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) PublishOutcomes(ctx context.Context, records []notification.Record) error {
	if len(records) == 0 {
		return nil
	}
	out := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		rec, err := toKafkaRecord(r)
		if err != nil {
			return err
		}
		out = append(out, rec)
	}
	return p.producer.Publish(ctx, out...)
}

func toKafkaRecord(r notification.Record) (*kgo.Record, error) {
	payload, err := json.Marshal(OutcomeEvent{
		EventType:      EventType,
		NotificationID: r.ID.String(),
		RequestID:      r.RequestID.String(),
		DonorID:        r.DonorID.String(),
		DeliveryStatus: string(r.DeliveryStatus),
		CreatedAt:      r.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode outcome event: %w", err)
	}
	return &kgo.Record{
		Key:   []byte(r.RequestID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(EventType)},
		},
		Timestamp: r.CreatedAt,
	}, nil
}
