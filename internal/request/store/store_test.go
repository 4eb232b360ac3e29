package store

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/platform/sqlite"
	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, status *models.Status) ([]models.Request, error)
	CloseIfOpen(ctx context.Context, requestID id.RequestID, now time.Time) (*models.Request, bool, error)
}

// StoreSuite runs the same behaviour checks against every local backend.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) requestStore
	store    requestStore
	ctx      context.Context
	base     time.Time
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) requestStore { return NewInMemoryStore() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) requestStore {
		db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "requests.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		return NewSQLite(db)
	}})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
	s.base = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) create(offset time.Duration) *models.Request {
	req, err := models.NewRequest(id.NewRequestID(), "Rosa", "+1", id.BloodGroupOPos, "Central Hospital", s.base.Add(offset))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, req))
	return req
}

func (s *StoreSuite) TestCreateAndFind() {
	req := s.create(0)

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(models.StatusOpen, got.Status)
	s.Nil(got.ClosedAt)
	s.True(req.CreatedAt.Equal(got.CreatedAt))

	s.ErrorIs(s.store.Create(s.ctx, req), sentinel.ErrConflict)
	_, err = s.store.FindByID(s.ctx, id.NewRequestID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestCloseIfOpen() {
	req := s.create(0)
	closedAt := s.base.Add(time.Hour)

	closed, transitioned, err := s.store.CloseIfOpen(s.ctx, req.ID, closedAt)
	s.Require().NoError(err)
	s.True(transitioned)
	s.Equal(models.StatusClosed, closed.Status)
	s.Require().NotNil(closed.ClosedAt)
	s.True(closedAt.Equal(*closed.ClosedAt))

	again, transitioned, err := s.store.CloseIfOpen(s.ctx, req.ID, closedAt.Add(time.Hour))
	s.Require().NoError(err)
	s.False(transitioned)
	s.Require().NotNil(again.ClosedAt)
	s.True(closedAt.Equal(*again.ClosedAt), "closed_at must not be overwritten")
}

func (s *StoreSuite) TestCloseIfOpenNotFound() {
	_, _, err := s.store.CloseIfOpen(s.ctx, id.NewRequestID(), s.base)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestConcurrentCloseTransitionsOnce() {
	req := s.create(0)
	const callers = 20

	var wg sync.WaitGroup
	var transitions atomic.Int32
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, transitioned, err := s.store.CloseIfOpen(s.ctx, req.ID, s.base.Add(time.Duration(i)*time.Second))
			s.NoError(err)
			if transitioned {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), transitions.Load())
}

func (s *StoreSuite) TestListNewestFirstWithStatusFilter() {
	older := s.create(0)
	newer := s.create(time.Minute)
	_, _, err := s.store.CloseIfOpen(s.ctx, older.ID, s.base.Add(time.Hour))
	s.Require().NoError(err)

	all, err := s.store.List(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(newer.ID, all[0].ID)

	open := models.StatusOpen
	onlyOpen, err := s.store.List(s.ctx, &open)
	s.Require().NoError(err)
	s.Require().Len(onlyOpen, 1)
	s.Equal(newer.ID, onlyOpen[0].ID)
}
