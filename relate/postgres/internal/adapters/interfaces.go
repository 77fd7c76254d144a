package adapters

import "context"

// DBAdapter defines the interface for the read operations needed by the source engine.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
}

// DBRows defines the interface for query result rows. Err must be checked
// after iteration: a connection dropped mid-stream ends Next without an error
// on Next itself, and only Err distinguishes that from a drained result set.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
