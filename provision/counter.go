package provision

import (
	"context"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/postgres"
	"github.com/mgutz/pgreset/runner"
)

// Counter reports exact row counts. It never writes.
type Counter struct {
	provider runner.Provider
}

// NewCounter creates a Counter.
func NewCounter(provider runner.Provider) *Counter {
	return &Counter{provider: provider}
}

// CountAll counts the rows of every base table in cfg.Schema. A missing
// database is reported as ErrDatabaseNotFound without connecting to it.
func (c *Counter) CountAll(ctx context.Context, cfg pgreset.Config) (pgreset.TableRowReport, error) {
	cfg = cfg.WithDefaults()
	report := pgreset.TableRowReport{Database: cfg.Database}

	exists, err := c.exists(ctx, cfg.Database)
	if err != nil {
		return report, err
	}
	if !exists {
		return report, pgreset.NewError(pgreset.ErrDatabaseNotFound, "count", cfg.Database, nil)
	}

	sess, err := c.provider.OpenApplication(ctx)
	if err != nil {
		return report, err
	}
	defer sess.Close()

	tables, err := postgres.BaseTables(ctx, sess, cfg.Schema)
	if err != nil {
		return report, err
	}

	for _, table := range tables {
		n, err := postgres.CountRows(ctx, sess, cfg.Schema, table)
		if err != nil {
			return report, err
		}
		logger.Debug("counted", "table", table, "rows", n)
		report.Tables = append(report.Tables, pgreset.TableCount{Table: table, Rows: n})
	}
	return report, nil
}

func (c *Counter) exists(ctx context.Context, name string) (bool, error) {
	admin, err := c.provider.OpenAdmin(ctx)
	if err != nil {
		return false, err
	}
	defer admin.Close()
	return postgres.DatabaseExists(ctx, admin, name)
}
