// Package postgres provides a PostgreSQL-backed relate.Source.
//
// The source translates the loader's two bulk-fetch primitives into IN-list
// queries built with goqu. Entity types are bound to tables through a
// Registry of Mappings; to-many relationships are bound per parent type to
// the foreign-key column on the child table.
//
// Three constructors cover the common driver choices: pgxpool.Pool
// (NewSourceFromPGXPool, optionally with a read replica), database/sql
// (NewSourceFromSQLDB) and sqlx (NewSourceFromSQLX).
//
// Queries are interpolated to plain SQL before execution. Entity ids travel
// as strings; PostgreSQL coerces the quoted literals of an IN-list against
// integer id columns, so numeric primary keys work without a cast.
package postgres
