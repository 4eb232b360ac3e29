package notification

import (
	"context"
	"log/slog"
	"time"

	"bloodlink/internal/notification/metrics"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/dedupe"
	"bloodlink/pkg/requestcontext"
)

//go:generate mockgen -source=ledger.go -destination=mocks/ledger_mocks.go -package=mocks LedgerStore,EventPublisher

// LedgerStore is the append-only persistence behind the Ledger.
type LedgerStore interface {
	AppendBatch(ctx context.Context, records []Record) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]Record, error)
}

// EventPublisher forwards stored records to downstream consumers.
type EventPublisher interface {
	PublishOutcomes(ctx context.Context, records []Record) error
}

// Ledger is the audit trail of send attempts. Appends are best effort:
// failures are logged and counted, never returned.
type Ledger struct {
	store     LedgerStore
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type LedgerOption func(*Ledger)

func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithPublisher emits an event per stored record after each append.
func WithPublisher(p EventPublisher) LedgerOption {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func NewLedger(store LedgerStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores outcomes as one batch stamped with the context clock.
func (l *Ledger) Append(ctx context.Context, outcomes []Outcome) {
	if len(outcomes) == 0 {
		return
	}
	records := newRecords(outcomes, requestcontext.Now(ctx))
	if err := l.store.AppendBatch(ctx, records); err != nil {
		l.metrics.IncrementLedgerAppendFailure()
		l.logger.ErrorContext(ctx, "failed to append notification records",
			"request_id", outcomes[0].RequestID,
			"records", len(records),
			"error", err,
		)
		return
	}
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishOutcomes(ctx, records); err != nil {
		l.metrics.IncrementPublishFailure()
		l.logger.WarnContext(ctx, "failed to publish notification outcomes",
			"request_id", outcomes[0].RequestID,
			"records", len(records),
			"error", err,
		)
	}
}

// RecordsFor returns every record for the request across all waves.
func (l *Ledger) RecordsFor(ctx context.Context, requestID id.RequestID) ([]Record, error) {
	records, err := l.store.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataAccess, "failed to read notification records")
	}
	return records, nil
}

// RecipientsFor returns the distinct donors with any record for the request,
// in first-recorded order.
func (l *Ledger) RecipientsFor(ctx context.Context, requestID id.RequestID) ([]id.DonorID, error) {
	records, err := l.RecordsFor(ctx, requestID)
	if err != nil {
		return nil, err
	}
	donors := make([]id.DonorID, len(records))
	for i, r := range records {
		donors[i] = r.DonorID
	}
	return dedupe.Values(donors), nil
}

func newRecords(outcomes []Outcome, now time.Time) []Record {
	records := make([]Record, len(outcomes))
	for i, o := range outcomes {
		records[i] = Record{
			ID:             id.NewNotificationID(),
			RequestID:      o.RequestID,
			DonorID:        o.DonorID,
			DeliveryStatus: o.Status,
			CreatedAt:      now,
		}
	}
	return records
}
