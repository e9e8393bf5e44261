package runner

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DB is a Session over a database/sql handle limited to one connection.
type DB struct {
	DB *sqlx.DB
	// Name is the database this session is connected to.
	Name string
}

// NewDB wraps db. The handle is capped at a single open connection so a DB is
// exactly one server session.
func NewDB(db *sql.DB, driverName string, name string) *DB {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &DB{DB: sqlx.NewDb(db, driverName), Name: name}
}

// Exec implements Queryer.
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return execSQL(ctx, db.DB, query, args)
}

// QueryScalar implements Queryer.
func (db *DB) QueryScalar(ctx context.Context, query string, args []interface{}, destinations ...interface{}) error {
	return queryScalar(ctx, db.DB, query, args, destinations...)
}

// QuerySlice implements Queryer.
func (db *DB) QuerySlice(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return querySlice(ctx, db.DB, dest, query, args)
}

// Begin creates a transaction.
func (db *DB) Begin(ctx context.Context) (Transaction, error) {
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("begin.error", "err", err, "database", db.Name)
		return nil, err
	}
	wrapped := WrapSqlxTx(tx)
	logger.Trace("tx begin", "ID", wrapped.ID, "database", db.Name)
	return wrapped, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	logger.Trace("close", "database", db.Name)
	return db.DB.Close()
}
