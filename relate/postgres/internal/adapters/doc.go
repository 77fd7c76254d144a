// Package adapters provides database adapter implementations for different
// PostgreSQL drivers.
//
// The source engine only reads, so the adapter contract is query-only.
// Three adapters are provided: PGXAdapter for pgxpool.Pool (with optional
// read replica), SQLAdapter for database/sql, and SQLXAdapter for sqlx.DB.
package adapters
