package postgres

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/mgutz/pgreset"
)

// QuoteIdentifier quotes a user supplied name for use in DDL. Names outside the
// identifier grammar are rejected rather than escaped.
func QuoteIdentifier(name string) (string, error) {
	if !pgreset.ValidIdentifier(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}

// QualifiedName quotes schema.table. The schema comes from configuration and
// must satisfy the grammar; the table comes from the catalog and is escaped.
func QualifiedName(schema, table string) (string, error) {
	s, err := QuoteIdentifier(schema)
	if err != nil {
		return "", err
	}
	return s + "." + pq.QuoteIdentifier(table), nil
}

// quoteColumn escapes a column name read from the catalog.
func quoteColumn(column string) string {
	return pq.QuoteIdentifier(column)
}
