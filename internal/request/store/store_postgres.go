package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

const requestColumns = `id, receiver_name, receiver_phone, blood_group_required, location, status, created_at, closed_at`

// PostgresStore persists requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		req.ReceiverName,
		req.ReceiverPhone,
		string(req.BloodGroupRequired),
		req.Location,
		string(req.Status),
		req.CreatedAt,
		req.ClosedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, status *models.Status) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	out := make([]models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// CloseIfOpen performs the open -> closed transition as one conditional
// UPDATE. When no row changes, the current record decides between
// already-closed and not-found.
func (s *PostgresStore) CloseIfOpen(ctx context.Context, requestID id.RequestID, now time.Time) (*models.Request, bool, error) {
	query := `
		UPDATE requests
		SET status = 'closed', closed_at = $2
		WHERE id = $1 AND status = 'open'
		RETURNING ` + requestColumns
	req, err := scanRequest(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(requestID), now))
	if err == nil {
		return req, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("close request: %w", err)
	}
	existing, err := s.FindByID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req       models.Request
		requestID uuid.UUID
		group     string
		status    string
		closedAt  sql.NullTime
	)
	if err := row.Scan(&requestID, &req.ReceiverName, &req.ReceiverPhone, &group, &req.Location, &status, &req.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	req.ID = id.RequestID(requestID)
	req.BloodGroupRequired = id.BloodGroup(group)
	req.Status = models.Status(status)
	if closedAt.Valid {
		t := closedAt.Time
		req.ClosedAt = &t
	}
	return &req, nil
}
