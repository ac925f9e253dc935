// Package pg bootstraps the engine's PostgreSQL layer: a pgxpool connection
// with startup retry, goose schema migrations, and a readiness probe for the
// operational health endpoint.
//
// The durable backends in pkg/queue, pkg/prefs, pkg/device, and pkg/audit all
// run on a pool opened here. Config is populated from PG_* environment
// variables; MigrationsPath defaults to the migrations directory shipped at
// the repository root.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	ready := pg.Healthcheck(pool) // feeds ops.RouterOptions.Readiness
package pg
