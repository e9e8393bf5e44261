package pgreset

import (
	"path/filepath"
	"time"
)

// ResolvedScript is a script file selected for a prefix.
type ResolvedScript struct {
	Prefix string
	Path   string
}

// Name is the base file name of the script.
func (s ResolvedScript) Name() string {
	return filepath.Base(s.Path)
}

// Outcome is the result of running one script.
type Outcome int

const (
	// Success means the script committed.
	Success Outcome = iota
	// SkippedEmpty means the script had no content; no connection was opened.
	SkippedEmpty
	// Failed means the script was not applied.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "ok"
	case SkippedEmpty:
		return "skipped (empty)"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ExecutionResult is the per-script entry of a batch report.
type ExecutionResult struct {
	Script   string
	Path     string
	Outcome  Outcome
	Encoding string
	Elapsed  time.Duration
	Err      error
}

// Reason returns the failure message or "".
func (r ExecutionResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// BatchReport is the ordered list of script results.
type BatchReport struct {
	Results []ExecutionResult
}

// Succeeded is true when every non-skipped script succeeded.
func (b BatchReport) Succeeded() bool {
	for _, r := range b.Results {
		if r.Outcome == Failed {
			return false
		}
	}
	return true
}

// Failures returns only failed results.
func (b BatchReport) Failures() []ExecutionResult {
	var failed []ExecutionResult
	for _, r := range b.Results {
		if r.Outcome == Failed {
			failed = append(failed, r)
		}
	}
	return failed
}

// TableCount is the exact row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// TableRowReport holds row counts ordered by table name.
type TableRowReport struct {
	Database string
	Tables   []TableCount
}

// Total is the sum of all counts.
func (r TableRowReport) Total() int64 {
	var total int64
	for _, t := range r.Tables {
		total += t.Rows
	}
	return total
}

// Count returns the row count for table and whether it was reported.
func (r TableRowReport) Count(table string) (int64, bool) {
	for _, t := range r.Tables {
		if t.Table == table {
			return t.Rows, true
		}
	}
	return 0, false
}

// SequenceOutcome is the result of reconciling one table's sequence.
type SequenceOutcome int

const (
	// SequenceReset means setval was applied.
	SequenceReset SequenceOutcome = iota
	// SequenceSkipped means the table has no single integer key with an owned sequence.
	SequenceSkipped
	// SequenceFailed means the reset was rolled back.
	SequenceFailed
)

func (o SequenceOutcome) String() string {
	switch o {
	case SequenceReset:
		return "reset"
	case SequenceSkipped:
		return "skipped"
	case SequenceFailed:
		return "failed"
	}
	return "unknown"
}

// ReconcileResult is the per-table entry of a sequence reconcile.
type ReconcileResult struct {
	Table    string
	Column   string
	Sequence string
	Outcome  SequenceOutcome
	// Value is the value passed to setval.
	Value int64
	// Called is setval's is_called; false means the next id is Value itself.
	Called bool
	Err    error
}

// NextID is the id the sequence hands out next.
func (r ReconcileResult) NextID() int64 {
	if r.Called {
		return r.Value + 1
	}
	return r.Value
}
