// Package postgres opens the PostgreSQL and Redis connections used by the
// docvault stores and applies the embedded schema migrations.
//
//	db, err := postgres.Open(ctx, postgres.ConfigFromStorage(cfg.Storage), logger)
//	applied, err := postgres.Migrate(ctx, db, logger)
//	rdb, err := postgres.NewRedisClient(ctx, cfg.Storage)
//
// Builds tagged "integration" also get SetupPostgresContainer, which runs a
// throwaway PostgreSQL through testcontainers.
package postgres
