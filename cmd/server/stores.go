package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	"bloodlink/internal/matching"
	"bloodlink/internal/notification"
	notificationstore "bloodlink/internal/notification/store"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/postgres"
	redisclient "bloodlink/internal/platform/redis"
	"bloodlink/internal/platform/sqlite"
	requestservice "bloodlink/internal/request/service"
	requeststore "bloodlink/internal/request/store"
	httptransport "bloodlink/internal/transport/http"
)

type donorStore interface {
	donorservice.Store
	matching.DonorDirectory
	requestservice.DonorLookup
}

// storage bundles the selected persistence backends and what is needed to
// check and release them.
type storage struct {
	donors   donorStore
	requests requestservice.Store
	records  notification.LedgerStore
	checks   map[string]httptransport.HealthCheck
	closers  []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	st := &storage{checks: map[string]httptransport.HealthCheck{}}

	var db *sql.DB
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pg); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		db = pg
		st.donors = donorstore.NewPostgres(pg)
		st.requests = requeststore.NewPostgres(pg)
		st.records = notificationstore.NewPostgres(pg)
		st.checks["postgres"] = pg.PingContext
	case config.StoreSQLite:
		lite, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db = lite
		st.donors = donorstore.NewSQLite(lite)
		st.requests = requeststore.NewSQLite(lite)
		st.records = notificationstore.NewSQLite(lite)
		st.checks["sqlite"] = lite.PingContext
	default:
		st.donors = donorstore.NewInMemoryStore()
		st.requests = requeststore.NewInMemoryStore()
		st.records = notificationstore.NewInMemoryStore()
	}
	if db != nil {
		st.closers = append(st.closers, func() { _ = db.Close() })
	}

	if cfg.Store.LedgerBackend == config.LedgerRedis {
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.records = notificationstore.NewRedis(client.Client)
		st.checks["redis"] = client.Health
		st.closers = append(st.closers, func() { _ = client.Close() })
	}

	logger.InfoContext(ctx, "storage ready",
		"driver", cfg.Store.Driver,
		"ledger_backend", cfg.Store.LedgerBackend,
	)
	return st, nil
}
