package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/odontogram/internal/config"
	"github.com/clinicdesk/odontogram/internal/domain/odontogram"
	"github.com/clinicdesk/odontogram/internal/platform/db"
	"github.com/clinicdesk/odontogram/internal/platform/hipaa"
)

// chartStore is the storage backend picked by STORAGE_DRIVER.
type chartStore struct {
	driver string
	repo   odontogram.ChartRepository
	// pool is set only for postgres; requests then run on a tenant connection.
	pool  *pgxpool.Pool
	ping  db.PingFunc
	close func()
	// sealed is set when notes are encrypted at rest.
	sealed bool
}

func openStore(ctx context.Context, cfg *config.Config) (*chartStore, error) {
	st, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.NotesEncryptionKey != "" {
		cipher, err := hipaa.NewFieldCipherHex(cfg.NotesEncryptionKey)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("NOTES_ENCRYPTION_KEY: %w", err)
		}
		st.repo = odontogram.NewSealedNotesRepo(st.repo, cipher)
		st.sealed = true
	}
	return st, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (*chartStore, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &chartStore{
			driver: cfg.StorageDriver,
			repo:   odontogram.NewChartRepoPG(pool),
			pool:   pool,
			ping:   pool.Ping,
			close:  pool.Close,
		}, nil
	case config.StorageSQLite:
		repo, err := odontogram.NewChartRepoSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &chartStore{
			driver: cfg.StorageDriver,
			repo:   repo,
			ping:   repo.DB().PingContext,
			close:  func() { _ = repo.Close() },
		}, nil
	case config.StorageMemory:
		return &chartStore{
			driver: cfg.StorageDriver,
			repo:   odontogram.NewChartRepoMemory(),
			ping:   func(context.Context) error { return nil },
			close:  func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
