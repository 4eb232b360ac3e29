package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/platform/sqlite"
	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

// SQLiteStore persists requests in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Create(ctx context.Context, req *models.Request) error {
	var closedAt any
	if req.ClosedAt != nil {
		closedAt = sqlite.ToMillis(*req.ClosedAt)
	}
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID.String(),
		req.ReceiverName,
		req.ReceiverPhone,
		string(req.BloodGroupRequired),
		req.Location,
		string(req.Status),
		sqlite.ToMillis(req.CreatedAt),
		closedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := scanSQLiteRequest(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, requestID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return req, nil
}

func (s *SQLiteStore) List(ctx context.Context, status *models.Status) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []any{}
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	out := make([]models.Request, 0)
	for rows.Next() {
		req, err := scanSQLiteRequest(rows)
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

// CloseIfOpen mirrors the PostgreSQL conditional update.
func (s *SQLiteStore) CloseIfOpen(ctx context.Context, requestID id.RequestID, now time.Time) (*models.Request, bool, error) {
	req, err := scanSQLiteRequest(tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		UPDATE requests
		SET status = 'closed', closed_at = ?
		WHERE id = ? AND status = 'open'
		RETURNING `+requestColumns, sqlite.ToMillis(now), requestID.String()))
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

func scanSQLiteRequest(row rowScanner) (*models.Request, error) {
	var (
		req       models.Request
		rawID     string
		group     string
		status    string
		createdAt int64
		closedAt  sql.NullInt64
	)
	if err := row.Scan(&rawID, &req.ReceiverName, &req.ReceiverPhone, &group, &req.Location, &status, &createdAt, &closedAt); err != nil {
		return nil, err
	}
	requestID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse request id %q: %w", rawID, err)
	}
	req.ID = id.RequestID(requestID)
	req.BloodGroupRequired = id.BloodGroup(group)
	req.Status = models.Status(status)
	req.CreatedAt = sqlite.FromMillis(createdAt)
	if closedAt.Valid {
		t := sqlite.FromMillis(closedAt.Int64)
		req.ClosedAt = &t
	}
	return &req, nil
}
