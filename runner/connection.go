package runner

import (
	"context"
	"database/sql"
)

// Queryer runs statements against a session or transaction.
type Queryer interface {
	// Exec executes a statement or a batch of statements when no args are given.
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// QueryScalar scans the first row into destinations. Returns sql.ErrNoRows
	// if there is none.
	QueryScalar(ctx context.Context, query string, args []interface{}, destinations ...interface{}) error
	// QuerySlice scans the first column of every row into dest, a pointer to a slice.
	QuerySlice(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transaction is a Queryer bound to a database transaction.
type Transaction interface {
	Queryer
	Commit() error
	Rollback() error
	// AutoRollback rolls back unless Commit or Rollback was already called.
	// It is meant to be deferred.
	AutoRollback() error
}

// Session is a single connection to one database.
type Session interface {
	Queryer
	Begin(ctx context.Context) (Transaction, error)
	Close() error
}

// Provider opens sessions. Every call opens a new physical connection which the
// caller must close.
type Provider interface {
	// OpenAdmin connects to the maintenance database in autocommit mode.
	OpenAdmin(ctx context.Context) (Session, error)
	// OpenApplication connects to the target database with UTF8 client encoding.
	OpenApplication(ctx context.Context) (Session, error)
}
