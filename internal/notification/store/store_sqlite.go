package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/notification"
	"bloodlink/internal/platform/sqlite"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/tx"
)

// SQLiteStore persists ledger records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// AppendBatch inserts every record inside one transaction.
func (s *SQLiteStore) AppendBatch(ctx context.Context, records []notification.Record) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		sqlTx, _ := tx.From(ctx)
		stmt, err := sqlTx.PrepareContext(ctx, `
			INSERT INTO notifications (id, request_id, donor_id, delivery_status, created_at)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare notification insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				r.ID.String(),
				r.RequestID.String(),
				r.DonorID.String(),
				string(r.DeliveryStatus),
				sqlite.ToMillis(r.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]notification.Record, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, request_id, donor_id, delivery_status, created_at
		FROM notifications
		WHERE request_id = ?
		ORDER BY created_at, rowid`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	records := make([]notification.Record, 0)
	for rows.Next() {
		var (
			rawID, rawRequest, rawDonor, status string
			createdAt                           int64
		)
		if err := rows.Scan(&rawID, &rawRequest, &rawDonor, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r, err := parseRecord(rawID, rawRequest, rawDonor, status)
		if err != nil {
			return nil, err
		}
		r.CreatedAt = sqlite.FromMillis(createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}

func parseRecord(rawID, rawRequest, rawDonor, status string) (notification.Record, error) {
	recordID, err := uuid.Parse(rawID)
	if err != nil {
		return notification.Record{}, fmt.Errorf("parse notification id: %w", err)
	}
	requestID, err := uuid.Parse(rawRequest)
	if err != nil {
		return notification.Record{}, fmt.Errorf("parse request id: %w", err)
	}
	donorID, err := uuid.Parse(rawDonor)
	if err != nil {
		return notification.Record{}, fmt.Errorf("parse donor id: %w", err)
	}
	return notification.Record{
		ID:             id.NotificationID(recordID),
		RequestID:      id.RequestID(requestID),
		DonorID:        id.DonorID(donorID),
		DeliveryStatus: notification.DeliveryStatus(status),
	}, nil
}
