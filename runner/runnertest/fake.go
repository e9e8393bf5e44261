// Package runnertest provides an in-memory runner.Provider which records every
// statement so tests can assert on ordering without a server.
package runnertest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/mgutz/pgreset/runner"
)

// Database names recorded for sessions opened by a Provider.
const (
	Admin       = "admin"
	Application = "application"
)

// Call is one recorded interaction. Control calls (open, begin, commit,
// rollback, close) are recorded with the query set to the upper case verb.
type Call struct {
	DB    string
	Query string
	Args  []interface{}
	InTx  bool
}

// Provider is a fake runner.Provider. Zero values answer every query with
// sql.ErrNoRows and every Exec with success.
type Provider struct {
	mu    sync.Mutex
	calls []Call
	open  map[string]int
	live  int
	txs   int

	// OpenErr fails OpenAdmin/OpenApplication when it returns an error.
	OpenErr func(db string) error
	// ExecFn answers Exec.
	ExecFn func(db, query string, args []interface{}) error
	// ScalarFn answers QueryScalar; use Set to fill destinations.
	ScalarFn func(db, query string, args []interface{}, dest ...interface{}) error
	// SliceFn answers QuerySlice; use Set to fill dest.
	SliceFn func(db, query string, args []interface{}, dest interface{}) error
	// CommitErr fails Commit.
	CommitErr error
}

var _ runner.Provider = (*Provider)(nil)

// New creates a Provider.
func New() *Provider {
	return &Provider{open: map[string]int{}}
}

// OpenAdmin implements runner.Provider.
func (p *Provider) OpenAdmin(ctx context.Context) (runner.Session, error) {
	return p.connect(Admin)
}

// OpenApplication implements runner.Provider.
func (p *Provider) OpenApplication(ctx context.Context) (runner.Session, error) {
	return p.connect(Application)
}

func (p *Provider) connect(db string) (runner.Session, error) {
	if p.OpenErr != nil {
		if err := p.OpenErr(db); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open == nil {
		p.open = map[string]int{}
	}
	p.open[db]++
	p.live++
	p.calls = append(p.calls, Call{DB: db, Query: "OPEN"})
	return &session{p: p, db: db}, nil
}

// Calls returns every recorded call in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Queries returns the query text of every recorded call in order.
func (p *Provider) Queries() []string {
	calls := p.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Query
	}
	return out
}

// Index returns the position of the first recorded call whose query contains
// substr, or -1.
func (p *Provider) Index(substr string) int {
	for i, q := range p.Queries() {
		if strings.Contains(q, substr) {
			return i
		}
	}
	return -1
}

// Count returns how many recorded calls contain substr.
func (p *Provider) Count(substr string) int {
	n := 0
	for _, q := range p.Queries() {
		if strings.Contains(q, substr) {
			n++
		}
	}
	return n
}

// Opened is the number of sessions ever opened on db.
func (p *Provider) Opened(db string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open[db]
}

// Live is the number of sessions not yet closed.
func (p *Provider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// PendingTx is the number of transactions neither committed nor rolled back.
func (p *Provider) PendingTx() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txs
}

func (p *Provider) record(c Call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *Provider) exec(db string, inTx bool, query string, args []interface{}) (sql.Result, error) {
	p.record(Call{DB: db, Query: query, Args: args, InTx: inTx})
	if p.ExecFn != nil {
		if err := p.ExecFn(db, query, args); err != nil {
			return nil, err
		}
	}
	return driverResult(0), nil
}

func (p *Provider) scalar(db string, inTx bool, query string, args []interface{}, dest ...interface{}) error {
	p.record(Call{DB: db, Query: query, Args: args, InTx: inTx})
	if p.ScalarFn == nil {
		return sql.ErrNoRows
	}
	return p.ScalarFn(db, query, args, dest...)
}

func (p *Provider) slice(db string, inTx bool, dest interface{}, query string, args []interface{}) error {
	p.record(Call{DB: db, Query: query, Args: args, InTx: inTx})
	if p.SliceFn == nil {
		return nil
	}
	return p.SliceFn(db, query, args, dest)
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

type session struct {
	p      *Provider
	db     string
	closed bool
}

func (s *session) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.p.exec(s.db, false, query, args)
}

func (s *session) QueryScalar(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	return s.p.scalar(s.db, false, query, args, dest...)
}

func (s *session) QuerySlice(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.p.slice(s.db, false, dest, query, args)
}

func (s *session) Begin(ctx context.Context) (runner.Transaction, error) {
	s.p.mu.Lock()
	s.p.txs++
	s.p.mu.Unlock()
	s.p.record(Call{DB: s.db, Query: "BEGIN"})
	return &tx{s: s}, nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.p.mu.Lock()
	s.p.live--
	s.p.mu.Unlock()
	s.p.record(Call{DB: s.db, Query: "CLOSE"})
	return nil
}

type tx struct {
	s    *session
	done bool
}

func (t *tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.s.p.exec(t.s.db, true, query, args)
}

func (t *tx) QueryScalar(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	return t.s.p.scalar(t.s.db, true, query, args, dest...)
}

func (t *tx) QuerySlice(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.s.p.slice(t.s.db, true, dest, query, args)
}

func (t *tx) Commit() error {
	if t.done {
		return runner.ErrTxCommitted
	}
	t.finish()
	if t.s.p.CommitErr != nil {
		t.s.p.record(Call{DB: t.s.db, Query: "COMMIT FAILED"})
		return t.s.p.CommitErr
	}
	t.s.p.record(Call{DB: t.s.db, Query: "COMMIT"})
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return runner.ErrTxRollbacked
	}
	t.finish()
	t.s.p.record(Call{DB: t.s.db, Query: "ROLLBACK"})
	return nil
}

func (t *tx) AutoRollback() error {
	if t.done {
		return nil
	}
	return t.Rollback()
}

func (t *tx) finish() {
	t.done = true
	t.s.p.mu.Lock()
	t.s.p.txs--
	t.s.p.mu.Unlock()
}

// Set assigns values to the destination pointers passed to QueryScalar or
// QuerySlice. It panics on a type mismatch so broken fixtures fail loudly.
func Set(dest []interface{}, values ...interface{}) error {
	if len(dest) != len(values) {
		panic(fmt.Sprintf("runnertest: %d destinations, %d values", len(dest), len(values)))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(values[i]))
	}
	return nil
}
