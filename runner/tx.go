package runner

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

const (
	txPending = iota
	txCommitted
	txRollbacked
	txErred
)

var (
	// ErrTxCommitted occurs when Commit or Rollback is called on a committed transaction.
	ErrTxCommitted = errors.New("transaction already committed")
	// ErrTxRollbacked occurs when Commit or Rollback is called on a rolled back transaction.
	ErrTxRollbacked = errors.New("transaction already rolled back")
)

// Tx is a transaction on a DB.
type Tx struct {
	sync.Mutex
	ID    int64
	Tx    *sqlx.Tx
	state int
}

// dbgTxID is a unique transaction ID for debugging
var dbgTxID int64

// WrapSqlxTx creates a Tx from a sqlx.Tx
func WrapSqlxTx(tx *sqlx.Tx) *Tx {
	return &Tx{Tx: tx, ID: atomic.AddInt64(&dbgTxID, 1)}
}

// Exec implements Queryer.
func (tx *Tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return execSQL(ctx, tx.Tx, query, args)
}

// QueryScalar implements Queryer.
func (tx *Tx) QueryScalar(ctx context.Context, query string, args []interface{}, destinations ...interface{}) error {
	return queryScalar(ctx, tx.Tx, query, args, destinations...)
}

// QuerySlice implements Queryer.
func (tx *Tx) QuerySlice(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return querySlice(ctx, tx.Tx, dest, query, args)
}

// Commit commits the transaction
func (tx *Tx) Commit() error {
	tx.Lock()
	defer tx.Unlock()

	switch tx.state {
	case txCommitted:
		logger.Warn("Cannot commit", "err", ErrTxCommitted, "ID", tx.ID)
		return ErrTxCommitted
	case txRollbacked:
		logger.Warn("Cannot commit", "err", ErrTxRollbacked, "ID", tx.ID)
		return ErrTxRollbacked
	}

	if err := tx.Tx.Commit(); err != nil {
		tx.state = txErred
		logger.Error("commit.error", "err", err, "ID", tx.ID)
		return err
	}

	logger.Debug("tx commit", "ID", tx.ID)
	tx.state = txCommitted
	return nil
}

// Rollback cancels the transaction
func (tx *Tx) Rollback() error {
	tx.Lock()
	defer tx.Unlock()
	return tx.rollback()
}

// AutoRollback rolls back transaction IF neither Commit or Rollback were called.
func (tx *Tx) AutoRollback() error {
	tx.Lock()
	defer tx.Unlock()

	if tx.state == txCommitted || tx.state == txRollbacked {
		return nil
	}
	return tx.rollback()
}

func (tx *Tx) rollback() error {
	switch tx.state {
	case txCommitted:
		logger.Warn("Cannot rollback", "err", ErrTxCommitted, "ID", tx.ID)
		return ErrTxCommitted
	case txRollbacked:
		logger.Warn("Cannot rollback", "err", ErrTxRollbacked, "ID", tx.ID)
		return ErrTxRollbacked
	}

	// a failed commit leaves the driver transaction done; treat it as rolled back
	err := tx.Tx.Rollback()
	if err != nil && err != sql.ErrTxDone {
		tx.state = txErred
		logger.Error("Unable to rollback", "err", err, "ID", tx.ID)
		return err
	}

	logger.Debug("tx rollback", "ID", tx.ID)
	tx.state = txRollbacked
	return nil
}
