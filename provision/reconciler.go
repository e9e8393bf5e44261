package provision

import (
	"context"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/postgres"
	"github.com/mgutz/pgreset/runner"
)

// Reconciler moves owned sequences past the highest loaded key so inserts
// after a bulk load do not collide.
type Reconciler struct {
	provider runner.Provider
}

// NewReconciler creates a Reconciler.
func NewReconciler(provider runner.Provider) *Reconciler {
	return &Reconciler{provider: provider}
}

// Reconcile visits every base table of cfg.Schema in name order, each in its
// own transaction. Per-table failures are recorded and do not stop the loop.
// Only failing to connect or to list tables is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context, cfg pgreset.Config) ([]pgreset.ReconcileResult, error) {
	cfg = cfg.WithDefaults()

	sess, err := r.provider.OpenApplication(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	tables, err := postgres.BaseTables(ctx, sess, cfg.Schema)
	if err != nil {
		return nil, pgreset.NewError(pgreset.ErrSequenceReconcile, "list tables", cfg.Schema, err)
	}

	results := make([]pgreset.ReconcileResult, 0, len(tables))
	for _, table := range tables {
		result := r.reconcileTable(ctx, sess, cfg.Schema, table)
		switch result.Outcome {
		case pgreset.SequenceReset:
			logger.Info("sequence reset", "table", table, "sequence", result.Sequence, "next", result.NextID())
		case pgreset.SequenceSkipped:
			logger.Debug("sequence skipped", "table", table)
		case pgreset.SequenceFailed:
			logger.Error("sequence reset failed", "table", table, "err", result.Err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Reconciler) reconcileTable(ctx context.Context, sess runner.Session, schema, table string) pgreset.ReconcileResult {
	result := pgreset.ReconcileResult{Table: table}
	fail := func(err error) pgreset.ReconcileResult {
		result.Outcome = pgreset.SequenceFailed
		result.Err = pgreset.NewError(pgreset.ErrSequenceReconcile, "reset", table, err)
		return result
	}

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fail(err)
	}
	defer tx.AutoRollback()

	column, ok, err := postgres.PrimaryKeyColumn(ctx, tx, schema, table)
	if err != nil {
		return fail(err)
	}
	if !ok {
		result.Outcome = pgreset.SequenceSkipped
		return result
	}
	result.Column = column

	seq, ok, err := postgres.SerialSequence(ctx, tx, schema, table, column)
	if err != nil {
		return fail(err)
	}
	if !ok {
		result.Outcome = pgreset.SequenceSkipped
		return result
	}
	result.Sequence = seq

	maxID, ok, err := postgres.MaxID(ctx, tx, schema, table, column)
	if err != nil {
		return fail(err)
	}
	if ok {
		result.Value, result.Called = maxID, true
	} else {
		start, err := postgres.SequenceStart(ctx, tx, seq)
		if err != nil {
			return fail(err)
		}
		result.Value, result.Called = start, false
	}

	if err := postgres.SetSequence(ctx, tx, seq, result.Value, result.Called); err != nil {
		return fail(err)
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}
	result.Outcome = pgreset.SequenceReset
	return result
}
