package runner

import (
	"context"
	"database/sql"
	"fmt"

	// registers the postgres driver
	_ "github.com/lib/pq"
	guid "github.com/satori/go.uuid"

	"github.com/mgutz/pgreset"
)

// DriverName is the database/sql driver used for every session.
const DriverName = "postgres"

// Connector opens admin and application sessions for one Config. It never
// retries; a failed connection is reported to the operator as is.
type Connector struct {
	config pgreset.Config
	runID  string
	open   func(driverName, dataSourceName string) (*sql.DB, error)
}

// NewConnector creates a Connector. Every session it opens is tagged with a
// per-run application_name so it can be spotted in pg_stat_activity.
func NewConnector(cfg pgreset.Config) *Connector {
	cfg = cfg.WithDefaults()
	runID := guid.NewV4().String()[:8]
	cfg.ApplicationName = cfg.ApplicationName + "-" + runID
	return &Connector{config: cfg, runID: runID, open: sql.Open}
}

// Config is the effective configuration, defaults applied.
func (c *Connector) Config() pgreset.Config {
	return c.config
}

// RunID identifies this invocation.
func (c *Connector) RunID() string {
	return c.runID
}

// OpenAdmin connects to the admin database. Statements outside Begin run in
// autocommit mode which CREATE/DROP DATABASE require.
func (c *Connector) OpenAdmin(ctx context.Context) (Session, error) {
	return c.connect(ctx, c.config.AdminDatabase)
}

// OpenApplication connects to the application database and forces UTF8 client
// encoding regardless of the server default.
func (c *Connector) OpenApplication(ctx context.Context) (Session, error) {
	db, err := c.connect(ctx, c.config.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, "SET client_encoding TO 'UTF8'"); err != nil {
		db.Close()
		return nil, pgreset.NewError(pgreset.ErrConnection, "set client_encoding", c.target(c.config.Database), err)
	}
	return db, nil
}

func (c *Connector) connect(ctx context.Context, database string) (*DB, error) {
	sqlDB, err := c.open(DriverName, c.config.DSN(database))
	if err != nil {
		return nil, pgreset.NewError(pgreset.ErrConnection, "open", c.target(database), err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		logger.Warn("connect failed", "target", c.target(database), "err", err)
		return nil, pgreset.NewError(pgreset.ErrConnection, "connect", c.target(database), err)
	}

	logger.Debug("connected", "target", c.target(database), "run", c.runID)
	return NewDB(sqlDB, DriverName, database), nil
}

func (c *Connector) target(database string) string {
	return fmt.Sprintf("%s@%s:%s/%s", c.config.User, c.config.Host, c.config.Port, database)
}
