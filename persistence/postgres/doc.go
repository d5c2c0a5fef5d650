// Package postgres implements the persistence collaborators on
// PostgreSQL with pgx/v5.
//
// Table and column names never come from payloads unchecked: cleanup and
// export accept only allowlisted tables, filters only accept plain column
// names, and every identifier is quoted with pgx.Identifier.
//
// The engine owns a single table, data_exports, created by the goose
// migrations embedded in this package:
//
//	if err := postgres.Migrate(ctx, pool, logger); err != nil { ... }
package postgres
