package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification"
	"bloodlink/internal/platform/sqlite"
	id "bloodlink/pkg/domain"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedSQLite(t *testing.T, db *sql.DB) (id.RequestID, id.DonorID) {
	t.Helper()
	ctx := context.Background()
	requestID, donorID := id.NewRequestID(), id.NewDonorID()
	now := sqlite.ToMillis(time.Now())
	_, err := db.ExecContext(ctx, `
		INSERT INTO requests (id, receiver_name, receiver_phone, blood_group_required, location, status, created_at)
		VALUES (?, 'Rosa', '+1', 'O+', 'Central Hospital', 'open', ?)`, requestID.String(), now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO donors (id, name, phone_number, blood_group, city, is_active, created_at)
		VALUES (?, 'Ana', '+2', 'O+', '', 1, ?)`, donorID.String(), now)
	require.NoError(t, err)
	return requestID, donorID
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	st := NewSQLite(db)
	requestID, donorID := seedSQLite(t, db)

	batch := []notification.Record{
		record(requestID, donorID, notification.StatusSent),
		record(requestID, donorID, notification.StatusSkipped),
	}
	require.NoError(t, st.AppendBatch(ctx, batch))
	require.NoError(t, st.AppendBatch(ctx, nil))

	got, err := st.ListByRequest(ctx, requestID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, batch[0].ID, got[0].ID)
	assert.Equal(t, donorID, got[1].DonorID)
	assert.True(t, batch[0].CreatedAt.Equal(got[0].CreatedAt))
}

// A foreign-key violation on any row rolls back the whole batch.
func TestSQLiteStore_AppendBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	st := NewSQLite(db)
	requestID, donorID := seedSQLite(t, db)

	err := st.AppendBatch(ctx, []notification.Record{
		record(requestID, donorID, notification.StatusSent),
		record(requestID, id.NewDonorID(), notification.StatusSent),
	})
	require.Error(t, err)

	got, err := st.ListByRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
