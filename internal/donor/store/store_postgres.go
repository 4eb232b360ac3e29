package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

const uniqueViolation = "23505"

const donorColumns = `id, name, phone_number, blood_group, city, is_active, created_at`

// PostgresStore persists donors in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donor store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, donor *models.Donor) error {
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(donor.ID),
		donor.Name,
		donor.Phone,
		string(donor.BloodGroup),
		donor.City,
		donor.IsActive,
		donor.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	d, err := scanDonor(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return d, nil
}

// FindByIDs resolves many donors in one round trip; unknown ids are skipped.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.DonorID) ([]models.Donor, error) {
	if len(ids) == 0 {
		return []models.Donor{}, nil
	}
	raw := make([]string, len(ids))
	for i, donorID := range ids {
		raw[i] = donorID.String()
	}
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = ANY($1::uuid[]) ORDER BY created_at`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find donors by ids: %w", err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

func (s *PostgresStore) ListActiveByBloodGroup(ctx context.Context, group id.BloodGroup) ([]models.Donor, error) {
	query := `
		SELECT ` + donorColumns + `
		FROM donors
		WHERE blood_group = $1 AND is_active = TRUE
		ORDER BY created_at
	`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, string(group))
	if err != nil {
		return nil, fmt.Errorf("list active donors: %w", err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

func (s *PostgresStore) SetActive(ctx context.Context, donorID id.DonorID, active bool) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE donors SET is_active = $2 WHERE id = $1`, uuid.UUID(donorID), active)
	if err != nil {
		return fmt.Errorf("set donor active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set donor active: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var (
		d       models.Donor
		donorID uuid.UUID
		group   string
	)
	if err := row.Scan(&donorID, &d.Name, &d.Phone, &group, &d.City, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DonorID(donorID)
	d.BloodGroup = id.BloodGroup(group)
	return &d, nil
}

func scanDonors(rows *sql.Rows) ([]models.Donor, error) {
	out := make([]models.Donor, 0)
	for rows.Next() {
		d, err := scanDonor(rows)
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
