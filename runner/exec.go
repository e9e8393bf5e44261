package runner

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// database is the interface for sqlx's DB or Tx against which
// queries can be executed
type database interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// maxLoggedSQL keeps whole schema files out of the log.
const maxLoggedSQL = 240

func toOutputStr(args []interface{}) string {
	if args == nil {
		return "nil"
	}
	var buf bytes.Buffer
	for i, arg := range args {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString("$")
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteString("=")
		switch t := arg.(type) {
		default:
			buf.WriteString(fmt.Sprintf("%v", t))
		case []byte:
			buf.WriteString("<binary>")
		}
	}
	return buf.String()
}

// truncateSQL cuts statement to at most maxLoggedSQL bytes on a rune boundary.
func truncateSQL(statement string) string {
	if len(statement) <= maxLoggedSQL {
		return statement
	}
	cut := maxLoggedSQL
	for cut > 0 && !utf8.RuneStart(statement[cut]) {
		cut--
	}
	return statement[:cut] + "..."
}

func logSQLError(err error, msg string, statement string, args []interface{}) error {
	return logger.Error(msg, "err", err, "sql", truncateSQL(statement), "args", toOutputStr(args))
}

func logExecutionTime(start time.Time, statement string, args []interface{}) {
	if logger.IsDebug() {
		logger.Debug("query", "elapsed", time.Since(start), "sql", truncateSQL(statement), "args", toOutputStr(args))
	}
}

func execSQL(ctx context.Context, db database, statement string, args []interface{}) (sql.Result, error) {
	defer logExecutionTime(time.Now(), statement, args)

	// with no arguments lib/pq uses the simple query protocol which accepts
	// multiple statements in one call
	result, err := db.ExecContext(ctx, statement, args...)
	if err != nil {
		logSQLError(err, "exec", statement, args)
		return nil, err
	}
	return result, nil
}

func queryScalar(ctx context.Context, db database, statement string, args []interface{}, destinations ...interface{}) error {
	defer logExecutionTime(time.Now(), statement, args)

	err := db.QueryRowxContext(ctx, statement, args...).Scan(destinations...)
	if err != nil && err != sql.ErrNoRows {
		logSQLError(err, "queryScalar", statement, args)
	}
	return err
}

func querySlice(ctx context.Context, db database, dest interface{}, statement string, args []interface{}) error {
	defer logExecutionTime(time.Now(), statement, args)

	err := db.SelectContext(ctx, dest, statement, args...)
	if err != nil {
		logSQLError(err, "querySlice", statement, args)
	}
	return err
}
