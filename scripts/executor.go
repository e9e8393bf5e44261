package scripts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mgutz/str"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/runner"
)

// Executor applies scripts to the application database, each in its own
// session and transaction.
type Executor struct {
	provider runner.Provider
}

// NewExecutor creates an Executor which opens sessions from provider.
func NewExecutor(provider runner.Provider) *Executor {
	return &Executor{provider: provider}
}

// RunOne applies script and reports the outcome in the result. A connection
// failure is recorded with its ErrConnection kind intact so callers can abort.
func (e *Executor) RunOne(ctx context.Context, script pgreset.ResolvedScript) pgreset.ExecutionResult {
	start := time.Now()
	result := pgreset.ExecutionResult{Script: script.Name(), Path: script.Path}

	fail := func(kind error, op string, err error) pgreset.ExecutionResult {
		result.Outcome = pgreset.Failed
		result.Err = pgreset.NewError(kind, op, result.Script, err)
		result.Elapsed = time.Since(start)
		logger.Error("script failed", "script", result.Script, "err", err)
		return result
	}

	text, enc, err := ReadFile(script.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(pgreset.ErrScriptNotFound, "read", err)
		}
		if err == errUndecodable {
			return fail(pgreset.ErrScriptDecode, "decode", fmt.Errorf("tried %s, %s, %s", UTF8, Windows1252, ISO88591))
		}
		return fail(pgreset.ErrScriptNotFound, "read", err)
	}
	result.Encoding = enc

	if str.IsEmpty(text) {
		logger.Warn("script is empty", "script", result.Script)
		result.Outcome = pgreset.SkippedEmpty
		result.Elapsed = time.Since(start)
		return result
	}

	if err := e.apply(ctx, text); err != nil {
		if errors.Is(err, pgreset.ErrConnection) {
			result.Outcome = pgreset.Failed
			result.Err = err
			result.Elapsed = time.Since(start)
			logger.Error("connection lost", "script", result.Script, "err", err)
			return result
		}
		if runner.IsServerError(err) {
			err = errors.New(runner.DescribeError(text, err))
		}
		return fail(pgreset.ErrScriptExecution, "exec", err)
	}

	result.Outcome = pgreset.Success
	result.Elapsed = time.Since(start)
	logger.Info("script applied", "script", result.Script, "encoding", enc, "elapsed", result.Elapsed)
	return result
}

// apply runs text in one transaction on a fresh session. The statement is not
// interrupted by cancellation of ctx; a running script always finishes or
// fails on its own.
func (e *Executor) apply(ctx context.Context, text string) error {
	ctx = context.WithoutCancel(ctx)

	sess, err := e.provider.OpenApplication(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.AutoRollback()

	if _, err := tx.Exec(ctx, text); err != nil {
		return err
	}
	return tx.Commit()
}

// RunAll applies scripts strictly in order. A failed script does not stop the
// batch unless the failure is fatal, e.g. the application database cannot be
// reached, in which case that error is returned. When ctx is cancelled the
// batch stops before the next script and returns ErrInterrupted. Either way the
// results gathered so far are returned.
func (e *Executor) RunAll(ctx context.Context, scripts []pgreset.ResolvedScript) (pgreset.BatchReport, error) {
	var report pgreset.BatchReport
	for i, script := range scripts {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch interrupted", "remaining", len(scripts)-i)
			return report, pgreset.NewError(pgreset.ErrInterrupted, "run", script.Name(), err)
		}
		result := e.RunOne(ctx, script)
		report.Results = append(report.Results, result)
		if pgreset.IsFatal(result.Err) {
			logger.Error("batch aborted", "script", result.Script, "remaining", len(scripts)-i-1)
			return report, result.Err
		}
	}
	return report, nil
}
