// Package pg provides PostgreSQL bootstrap utilities for the delivery log
// store: connection pooling with startup retries (pgx/v5), goose schema
// migrations routed through the application logger, health checks, and
// error classification helpers.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// All tunables come from environment variables; see the field tags on
// Config for names and defaults.
package pg
