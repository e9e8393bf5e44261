package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/runner"
	"github.com/mgutz/pgreset/scripts"
)

// Mode selects what a run does.
type Mode int

const (
	// Count reports row counts and changes nothing.
	Count Mode = iota
	// Drop recreates the database empty.
	Drop
	// Reset recreates the database and applies the first group.
	Reset
	// Staged recreates the database, applies every group in order and
	// reconciles sequences.
	Staged
	// Check parses every group offline without connecting.
	Check
)

var modeNames = map[Mode]string{
	Count:  "count",
	Drop:   "drop",
	Reset:  "reset",
	Staged: "staged",
	Check:  "check",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Destructive reports whether the mode drops the database.
func (m Mode) Destructive() bool {
	return m == Drop || m == Reset || m == Staged
}

// Plan is what a destructive run is about to do. It is shown to the operator
// before anything is dropped.
type Plan struct {
	Mode     Mode
	Target   string
	Database string
	Scripts  []pgreset.ResolvedScript
	Missing  []string
}

// ConfirmFunc asks the operator to approve plan.
type ConfirmFunc func(plan Plan) (bool, error)

// AlwaysConfirm approves every plan.
func AlwaysConfirm(Plan) (bool, error) {
	return true, nil
}

// Options are the per-run inputs.
type Options struct {
	Mode Mode
	// Groups are the script prefixes in apply order. Defaults to scripts.DefaultGroups.
	Groups []string
	// Confirm is required for destructive modes.
	Confirm ConfirmFunc
}

// Report is everything a run produced.
type Report struct {
	Mode      Mode
	Plan      Plan
	Created   bool
	Batch     pgreset.BatchReport
	Sequences []pgreset.ReconcileResult
	Rows      pgreset.TableRowReport
	Checks    []scripts.CheckResult
}

// Provisioner runs one mode against one database.
type Provisioner struct {
	config     pgreset.Config
	locator    *scripts.Locator
	recreator  *Recreator
	executor   *scripts.Executor
	reconciler *Reconciler
	counter    *Counter
	checker    *scripts.Checker
}

// New creates a Provisioner which opens sessions from provider and reads
// scripts from locator.
func New(cfg pgreset.Config, provider runner.Provider, locator *scripts.Locator) *Provisioner {
	return &Provisioner{
		config:     cfg.WithDefaults(),
		locator:    locator,
		recreator:  NewRecreator(provider),
		executor:   scripts.NewExecutor(provider),
		reconciler: NewReconciler(provider),
		counter:    NewCounter(provider),
		checker:    &scripts.Checker{},
	}
}

// Recreator exposes the recreator for tuning, e.g. DrainTimeout.
func (p *Provisioner) Recreator() *Recreator {
	return p.recreator
}

// Run executes opts.Mode. The report is returned even when err is not nil and
// holds whatever completed.
func (p *Provisioner) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Mode: opts.Mode}

	if err := p.validate(opts); err != nil {
		return report, err
	}

	groups := opts.Groups
	if len(groups) == 0 {
		groups = scripts.DefaultGroups
	}

	switch opts.Mode {
	case Count:
		rows, err := p.counter.CountAll(ctx, p.config)
		if err != nil {
			return report, err
		}
		report.Rows = rows
		return report, nil
	case Check:
		return report, p.check(report, groups)
	}

	plan, err := p.plan(opts.Mode, groups)
	if err != nil {
		return report, err
	}
	report.Plan = plan

	ok, err := opts.Confirm(plan)
	if err != nil {
		return report, err
	}
	if !ok {
		logger.Info("declined", "database", p.config.Database)
		return report, pgreset.NewError(pgreset.ErrCancelled, opts.Mode.String(), p.config.Database, nil)
	}
	if err := ctx.Err(); err != nil {
		return report, pgreset.NewError(pgreset.ErrInterrupted, opts.Mode.String(), p.config.Database, err)
	}

	created, err := p.recreator.Recreate(ctx, p.config)
	report.Created = created
	if err != nil {
		return report, err
	}
	if opts.Mode == Drop {
		return report, nil
	}

	batch, err := p.executor.RunAll(ctx, plan.Scripts)
	report.Batch = batch
	if err != nil {
		return report, err
	}

	if opts.Mode == Staged {
		if err := ctx.Err(); err != nil {
			return report, pgreset.NewError(pgreset.ErrInterrupted, "reconcile", p.config.Database, err)
		}
		seqs, err := p.reconciler.Reconcile(ctx, p.config)
		report.Sequences = seqs
		if err != nil {
			return report, err
		}
	}

	if !batch.Succeeded() {
		return report, pgreset.NewError(pgreset.ErrBatchFailed, opts.Mode.String(), p.config.Database,
			fmt.Errorf("%d of %d scripts failed", len(batch.Failures()), len(batch.Results)))
	}
	return report, nil
}

func (p *Provisioner) validate(opts Options) error {
	if _, ok := modeNames[opts.Mode]; !ok {
		return pgreset.NewError(pgreset.ErrConfiguration, "mode", opts.Mode.String(), errors.New("unknown mode"))
	}
	if opts.Mode.Destructive() && opts.Confirm == nil {
		return pgreset.NewError(pgreset.ErrConfiguration, "confirm", opts.Mode.String(),
			errors.New("destructive mode requires a confirmation"))
	}
	if opts.Mode == Check {
		// offline; connection settings are not needed
		return nil
	}
	return p.config.Validate()
}

func (p *Provisioner) plan(mode Mode, groups []string) (Plan, error) {
	plan := Plan{Mode: mode, Target: p.config.String(), Database: p.config.Database}

	switch mode {
	case Reset:
		groups = groups[:1]
	case Drop:
		return plan, nil
	}

	located, err := p.locator.Locate(groups)
	if err != nil {
		return plan, pgreset.NewError(pgreset.ErrConfiguration, "scripts", p.locator.Dir, err)
	}
	plan.Scripts = located.Scripts
	plan.Missing = located.Missing
	return plan, nil
}

func (p *Provisioner) check(report *Report, groups []string) error {
	located, err := p.locator.Locate(groups)
	if err != nil {
		return pgreset.NewError(pgreset.ErrConfiguration, "scripts", p.locator.Dir, err)
	}
	report.Plan = Plan{Mode: Check, Database: p.config.Database, Scripts: located.Scripts, Missing: located.Missing}
	report.Checks = p.checker.Check(located.Scripts)

	failed := 0
	for _, c := range report.Checks {
		if !c.OK() {
			failed++
		}
	}
	if failed > 0 {
		return pgreset.NewError(pgreset.ErrBatchFailed, "check", p.locator.Dir,
			fmt.Errorf("%d of %d scripts failed", failed, len(report.Checks)))
	}
	return nil
}
