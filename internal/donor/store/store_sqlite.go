package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/platform/sqlite"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

// SQLiteStore persists donors in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Create(ctx context.Context, donor *models.Donor) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO donors (`+donorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		donor.ID.String(),
		donor.Name,
		donor.Phone,
		string(donor.BloodGroup),
		donor.City,
		donor.IsActive,
		sqlite.ToMillis(donor.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	d, err := scanSQLiteDonor(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE id = ?`, donorID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []id.DonorID) ([]models.Donor, error) {
	if len(ids) == 0 {
		return []models.Donor{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, donorID := range ids {
		placeholders[i] = "?"
		args[i] = donorID.String()
	}
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id IN (` + strings.Join(placeholders, ",") + `) ORDER BY created_at`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find donors by ids: %w", err)
	}
	defer rows.Close()
	return scanSQLiteDonors(rows)
}

func (s *SQLiteStore) ListActiveByBloodGroup(ctx context.Context, group id.BloodGroup) ([]models.Donor, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+donorColumns+`
		FROM donors
		WHERE blood_group = ? AND is_active = 1
		ORDER BY created_at, rowid`, string(group))
	if err != nil {
		return nil, fmt.Errorf("list active donors: %w", err)
	}
	defer rows.Close()
	return scanSQLiteDonors(rows)
}

func (s *SQLiteStore) SetActive(ctx context.Context, donorID id.DonorID, active bool) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE donors SET is_active = ? WHERE id = ?`, active, donorID.String())
	if err != nil {
		return fmt.Errorf("set donor active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanSQLiteDonor(row rowScanner) (*models.Donor, error) {
	var (
		d         models.Donor
		rawID     string
		group     string
		createdAt int64
	)
	if err := row.Scan(&rawID, &d.Name, &d.Phone, &group, &d.City, &d.IsActive, &createdAt); err != nil {
		return nil, err
	}
	donorID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse donor id %q: %w", rawID, err)
	}
	d.ID = id.DonorID(donorID)
	d.BloodGroup = id.BloodGroup(group)
	d.CreatedAt = sqlite.FromMillis(createdAt)
	return &d, nil
}

func scanSQLiteDonors(rows *sql.Rows) ([]models.Donor, error) {
	out := make([]models.Donor, 0)
	for rows.Next() {
		d, err := scanSQLiteDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}
