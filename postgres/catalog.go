package postgres

import (
	"context"
	"database/sql"

	"github.com/mgutz/pgreset/runner"
)

// DatabaseExists reports whether a database named exactly name exists.
func DatabaseExists(ctx context.Context, q runner.Queryer, name string) (bool, error) {
	var one int
	err := q.QueryScalar(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, []interface{}{name}, &one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TerminateBackends asks the server to terminate every other session connected
// to name. It returns how many backends were signalled. A backend which already
// exited is not an error.
func TerminateBackends(ctx context.Context, q runner.Queryer, name string) (int, error) {
	var signalled []bool
	err := q.QuerySlice(ctx, &signalled, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, name)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range signalled {
		if ok {
			n++
		}
	}
	logger.Debug("terminated backends", "database", name, "count", n)
	return n, nil
}

// OtherSessions counts sessions connected to name other than the caller's.
func OtherSessions(ctx context.Context, q runner.Queryer, name string) (int, error) {
	var n int
	err := q.QueryScalar(ctx, `
		SELECT count(*)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, []interface{}{name}, &n)
	return n, err
}

// DropDatabase drops name if it exists. q must not be inside a transaction.
func DropDatabase(ctx context.Context, q runner.Queryer, name string) error {
	quoted, err := QuoteIdentifier(name)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, "DROP DATABASE IF EXISTS "+quoted)
	return err
}

// CreateDatabase creates name with the server's default owner, template and
// encoding. q must not be inside a transaction.
func CreateDatabase(ctx context.Context, q runner.Queryer, name string) error {
	quoted, err := QuoteIdentifier(name)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, "CREATE DATABASE "+quoted)
	return err
}

// BaseTables lists the base tables of schema ordered by name. Views, foreign
// and partitioned parent tables are excluded.
func BaseTables(ctx context.Context, q runner.Queryer, schema string) ([]string, error) {
	var tables []string
	err := q.QuerySlice(ctx, &tables, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	return tables, err
}

// CountRows returns the exact row count of schema.table.
func CountRows(ctx context.Context, q runner.Queryer, schema, table string) (int64, error) {
	name, err := QualifiedName(schema, table)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.QueryScalar(ctx, "SELECT COUNT(*) FROM "+name, nil, &n)
	return n, err
}

// PrimaryKeyColumn returns the column of a single-column integer primary key
// on schema.table. ok is false when the table has no such key.
func PrimaryKeyColumn(ctx context.Context, q runner.Queryer, schema, table string) (column string, ok bool, err error) {
	name, err := QualifiedName(schema, table)
	if err != nil {
		return "", false, err
	}

	err = q.QueryScalar(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = i.indkey[0]
		WHERE i.indrelid = $1::regclass
			AND i.indisprimary
			AND i.indnatts = 1
			AND a.atttypid IN ('int2'::regtype, 'int4'::regtype, 'int8'::regtype)
	`, []interface{}{name}, &column)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return column, true, nil
}

// SerialSequence returns the sequence owned by schema.table.column, serial or
// identity. ok is false when the column owns none.
func SerialSequence(ctx context.Context, q runner.Queryer, schema, table, column string) (sequence string, ok bool, err error) {
	name, err := QualifiedName(schema, table)
	if err != nil {
		return "", false, err
	}

	var seq sql.NullString
	err = q.QueryScalar(ctx, `SELECT pg_get_serial_sequence($1, $2)`, []interface{}{name, column}, &seq)
	if err != nil {
		return "", false, err
	}
	return seq.String, seq.Valid, nil
}

// SequenceStart returns the START WITH value of sequence.
func SequenceStart(ctx context.Context, q runner.Queryer, sequence string) (int64, error) {
	var start int64
	err := q.QueryScalar(ctx, `SELECT seqstart FROM pg_sequence WHERE seqrelid = $1::regclass`,
		[]interface{}{sequence}, &start)
	return start, err
}

// MaxID returns MAX(column) of schema.table. ok is false for an empty table.
func MaxID(ctx context.Context, q runner.Queryer, schema, table, column string) (maxID int64, ok bool, err error) {
	name, err := QualifiedName(schema, table)
	if err != nil {
		return 0, false, err
	}
	col := quoteColumn(column)

	var v sql.NullInt64
	err = q.QueryScalar(ctx, "SELECT MAX("+col+") FROM "+name, nil, &v)
	if err != nil {
		return 0, false, err
	}
	return v.Int64, v.Valid, nil
}

// SetSequence sets sequence to value. With called true the next nextval
// returns value+1, otherwise value.
func SetSequence(ctx context.Context, q runner.Queryer, sequence string, value int64, called bool) error {
	var v int64
	return q.QueryScalar(ctx, `SELECT setval($1::regclass, $2, $3)`,
		[]interface{}{sequence, value, called}, &v)
}
