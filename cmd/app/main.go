package main

import (
	"context"
	"fmt"
	"os"

	"agency-ledger/internal/adapters/cli"
	"agency-ledger/internal/app"
	"agency-ledger/internal/config"
	"agency-ledger/internal/db"
	"agency-ledger/internal/logger"
)

func main() {
	if err := cli.Execute(context.Background(), open, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// open loads configuration and wires the services for one command run.
func open(ctx context.Context) (*cli.Runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	zlog, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}

	services, err := app.WireServices(pool, cfg.Posting, cfg.Ranking, zlog)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	rt := &cli.Runtime{
		Svc: app.NewAppService(services),
		Log: zlog,
		Migrate: func(ctx context.Context) error {
			return db.Migrate(ctx, pool, zlog)
		},
	}
	release := func() {
		pool.Close()
		_ = zlog.Sync()
	}
	return rt, release, nil
}
