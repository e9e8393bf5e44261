package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/postgres"
	"github.com/mgutz/pgreset/runner"
)

// DefaultDrainTimeout bounds the wait for terminated sessions to disconnect.
const DefaultDrainTimeout = 5 * time.Second

// Recreator drops and creates the application database from the admin
// database.
type Recreator struct {
	provider runner.Provider
	// DrainTimeout bounds the wait between terminating sessions and DROP.
	DrainTimeout time.Duration
}

// NewRecreator creates a Recreator.
func NewRecreator(provider runner.Provider) *Recreator {
	return &Recreator{provider: provider, DrainTimeout: DefaultDrainTimeout}
}

// Recreate drops cfg.Database if it exists, after terminating every other
// session connected to it, then creates it empty. It returns true only when
// the database was created.
func (r *Recreator) Recreate(ctx context.Context, cfg pgreset.Config) (bool, error) {
	name := cfg.Database

	admin, err := r.provider.OpenAdmin(ctx)
	if err != nil {
		return false, err
	}
	defer admin.Close()

	exists, err := postgres.DatabaseExists(ctx, admin, name)
	if err != nil {
		return false, pgreset.NewError(pgreset.ErrDrop, "exists", name, err)
	}

	if exists {
		if err := r.drop(ctx, admin, name); err != nil {
			return false, err
		}
	} else {
		logger.Info("database does not exist", "database", name)
	}

	if err := postgres.CreateDatabase(ctx, admin, name); err != nil {
		return false, pgreset.NewError(pgreset.ErrCreate, "create", name, err)
	}
	logger.Info("created database", "database", name)
	return true, nil
}

func (r *Recreator) drop(ctx context.Context, admin runner.Session, name string) error {
	n, err := postgres.TerminateBackends(ctx, admin, name)
	if err != nil {
		return pgreset.NewError(pgreset.ErrDrop, "terminate", name, err)
	}
	if n > 0 {
		logger.Info("terminated sessions", "database", name, "count", n)
		if err := r.drain(ctx, admin, name); err != nil {
			// DROP reports the sessions still connected
			logger.Warn("sessions still connected", "database", name, "err", err)
		}
	}

	if err := postgres.DropDatabase(ctx, admin, name); err != nil {
		return pgreset.NewError(pgreset.ErrDrop, "drop", name, err)
	}
	logger.Info("dropped database", "database", name)
	return nil
}

// drain waits until no other session is connected to name.
func (r *Recreator) drain(ctx context.Context, admin runner.Session, name string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = r.DrainTimeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = DefaultDrainTimeout
	}

	var queryErr error
	err := backoff.Retry(func() error {
		n, err := postgres.OtherSessions(ctx, admin, name)
		if err != nil {
			// stop retrying, the admin session is unusable
			queryErr = err
			return nil
		}
		if n > 0 {
			return fmt.Errorf("%d sessions", n)
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if queryErr != nil {
		return queryErr
	}
	return err
}
