package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cma-cli/internal/cma"
	"github.com/sells-group/cma-cli/internal/market"
	"github.com/sells-group/cma-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "cma.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initService builds the analysis service on a migrated store. The caller
// owns the returned store and must Close it.
func initService(ctx context.Context) (*cma.Service, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	profiles, err := market.Load(cfg.Market)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	svc, err := cma.New(st, cfg.Engine, profiles, cma.WithDefaultMarket(cfg.Market.DefaultProfile))
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}
