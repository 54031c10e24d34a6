package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"hingecraft/internal/domain"
	"hingecraft/internal/infra"
)

// Store is a donation repository together with its schema bootstrap and
// teardown.
type Store interface {
	domain.DonationRepository
	EnsureSchema(ctx context.Context) error
}

// Open connects the store selected by cfg.DatabaseDriver, ensures its schema
// and returns a closer that releases the underlying handle.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (Store, func(), error) {
	var (
		store   Store
		closeFn func()
	)
	switch cfg.DatabaseDriver {
	case infra.DriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store = NewDonationRepository(infra.NewSQLRunner(pool, logger), cfg.CommandTimeout)
		closeFn = pool.Close
	case infra.DriverSQLite:
		db, err := infra.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store = NewDonationGormRepository(db, cfg.CommandTimeout)
		closeFn = func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("donation store ready")
	return store, closeFn, nil
}
