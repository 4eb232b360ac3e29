package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/tx"
)

// PostgresStore persists ledger records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AppendBatch inserts all records in a single statement.
func (s *PostgresStore) AppendBatch(ctx context.Context, records []notification.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	requestIDs := make([]string, len(records))
	donorIDs := make([]string, len(records))
	statuses := make([]string, len(records))
	createdAt := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID.String()
		requestIDs[i] = r.RequestID.String()
		donorIDs[i] = r.DonorID.String()
		statuses[i] = string(r.DeliveryStatus)
		createdAt[i] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	query := `
		INSERT INTO notifications (id, request_id, donor_id, delivery_status, created_at)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::timestamptz[])
	`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		pq.Array(ids),
		pq.Array(requestIDs),
		pq.Array(donorIDs),
		pq.Array(statuses),
		pq.Array(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append notifications batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]notification.Record, error) {
	query := `
		SELECT id, request_id, donor_id, delivery_status, created_at
		FROM notifications
		WHERE request_id = $1
		ORDER BY created_at, id
	`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	records := make([]notification.Record, 0)
	for rows.Next() {
		var (
			r                        notification.Record
			recordID, reqID, donorID uuid.UUID
			status                   string
		)
		if err := rows.Scan(&recordID, &reqID, &donorID, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r.ID = id.NotificationID(recordID)
		r.RequestID = id.RequestID(reqID)
		r.DonorID = id.DonorID(donorID)
		r.DeliveryStatus = notification.DeliveryStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}
