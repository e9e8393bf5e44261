package scripts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/runner/runnertest"
)

func resolved(dir string, names ...string) []pgreset.ResolvedScript {
	var out []pgreset.ResolvedScript
	for _, name := range names {
		out = append(out, pgreset.ResolvedScript{Prefix: name[:2], Path: filepath.Join(dir, name)})
	}
	return out
}

func TestRunAllContinuesPastFailure(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"1_schema.sql": []byte("CREATE TABLE a (id serial primary key);"),
		"2_seed.sql":   []byte("INSERT INTO a VALUES (1);\nINSERT INTO nope VALUES (2);"),
		"3_more.sql":   []byte("INSERT INTO a VALUES (3);"),
	})
	p := runnertest.New()
	p.ExecFn = func(db, query string, args []interface{}) error {
		if strings.Contains(query, "nope") {
			return &pq.Error{Severity: "ERROR", Code: "42P01", Message: `relation "nope" does not exist`, Position: "39"}
		}
		return nil
	}

	report, err := NewExecutor(p).RunAll(context.Background(), resolved(dir, "1_schema.sql", "2_seed.sql", "3_more.sql"))
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, pgreset.Success, report.Results[0].Outcome)
	assert.Equal(t, pgreset.Failed, report.Results[1].Outcome)
	assert.Equal(t, pgreset.Success, report.Results[2].Outcome)
	assert.False(t, report.Succeeded())

	failed := report.Results[1]
	assert.True(t, errors.Is(failed.Err, pgreset.ErrScriptExecution))
	assert.Contains(t, failed.Reason(), "42P01")
	assert.Contains(t, failed.Reason(), "line=2")

	// one session per script and nothing left open
	assert.Equal(t, 3, p.Opened(runnertest.Application))
	assert.Equal(t, 0, p.Live())
	assert.Equal(t, 0, p.PendingTx())
	assert.Equal(t, 2, p.Count("COMMIT"))
	assert.Equal(t, 1, p.Count("ROLLBACK"))
}

func TestRunOneExecutesWholeFileInTransaction(t *testing.T) {
	content := "CREATE TABLE a (id int);\nCREATE TABLE b (id int);\n"
	dir := writeFiles(t, map[string][]byte{"1_schema.sql": []byte(content)})
	p := runnertest.New()

	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "1_schema.sql")[0])
	require.Equal(t, pgreset.Success, result.Outcome, result.Reason())
	assert.Equal(t, UTF8, result.Encoding)

	calls := p.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, []string{"OPEN", "BEGIN", content, "COMMIT", "CLOSE"}, p.Queries())
	assert.True(t, calls[2].InTx)
}

func TestRunOneEmptyScriptOpensNoConnection(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"2_seed.sql": []byte("  \n\t\r\n")})
	p := runnertest.New()

	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "2_seed.sql")[0])
	assert.Equal(t, pgreset.SkippedEmpty, result.Outcome)
	assert.NoError(t, result.Err)
	assert.Equal(t, 0, p.Opened(runnertest.Application))
}

func TestRunOneMissingFile(t *testing.T) {
	p := runnertest.New()
	result := NewExecutor(p).RunOne(context.Background(), resolved(t.TempDir(), "1_gone.sql")[0])
	assert.Equal(t, pgreset.Failed, result.Outcome)
	assert.True(t, errors.Is(result.Err, pgreset.ErrScriptNotFound))
	assert.Equal(t, 0, p.Opened(runnertest.Application))
}

func TestRunOneUndecodable(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"1_bin.sql": {'S', 0x00, 'Q'}})
	p := runnertest.New()
	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "1_bin.sql")[0])
	assert.Equal(t, pgreset.Failed, result.Outcome)
	assert.True(t, errors.Is(result.Err, pgreset.ErrScriptDecode))
}

func TestRunOneWindows1252File(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"2_seed.sql": []byte("INSERT INTO t VALUES ('Jos\xe9');")})
	p := runnertest.New()

	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "2_seed.sql")[0])
	require.Equal(t, pgreset.Success, result.Outcome)
	assert.Equal(t, Windows1252, result.Encoding)
	assert.Equal(t, 1, p.Count("INSERT INTO t VALUES ('José');"))
}

func TestRunOneConnectionFailure(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"1_schema.sql": []byte("SELECT 1;")})
	p := runnertest.New()
	p.OpenErr = func(db string) error {
		return pgreset.NewError(pgreset.ErrConnection, "connect", db, errors.New("refused"))
	}

	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "1_schema.sql")[0])
	assert.Equal(t, pgreset.Failed, result.Outcome)
	assert.True(t, errors.Is(result.Err, pgreset.ErrConnection))
	assert.False(t, errors.Is(result.Err, pgreset.ErrScriptExecution))
	assert.True(t, pgreset.IsFatal(result.Err))
}

func TestRunAllAbortsOnConnectionFailure(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"1_schema.sql": []byte("SELECT 1;"),
		"2_seed.sql":   []byte("SELECT 2;"),
		"3_more.sql":   []byte("SELECT 3;"),
	})
	p := runnertest.New()
	p.OpenErr = func(db string) error {
		return pgreset.NewError(pgreset.ErrConnection, "connect", db, errors.New("refused"))
	}

	report, err := NewExecutor(p).RunAll(context.Background(), resolved(dir, "1_schema.sql", "2_seed.sql", "3_more.sql"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgreset.ErrConnection))
	require.Len(t, report.Results, 1)
	assert.Equal(t, "1_schema.sql", report.Results[0].Script)
	assert.Equal(t, pgreset.Failed, report.Results[0].Outcome)
	assert.Equal(t, 0, p.Live())
}

func TestRunOneCommitFailureRollsBack(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"1_schema.sql": []byte("SELECT 1;")})
	p := runnertest.New()
	p.CommitErr = errors.New("could not serialize access")

	result := NewExecutor(p).RunOne(context.Background(), resolved(dir, "1_schema.sql")[0])
	assert.Equal(t, pgreset.Failed, result.Outcome)
	assert.Equal(t, 0, p.PendingTx())
	assert.Equal(t, 0, p.Live())
}

func TestRunAllStopsBetweenScriptsWhenCancelled(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"1_schema.sql": []byte("SELECT 1;"),
		"2_seed.sql":   []byte("SELECT 2;"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	p := runnertest.New()
	p.ExecFn = func(db, query string, args []interface{}) error {
		// the signal arrives while the first script runs
		cancel()
		return nil
	}

	report, err := NewExecutor(p).RunAll(ctx, resolved(dir, "1_schema.sql", "2_seed.sql"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgreset.ErrInterrupted))
	require.Len(t, report.Results, 1)
	assert.Equal(t, pgreset.Success, report.Results[0].Outcome)
	assert.Equal(t, 1, p.Opened(runnertest.Application))
	assert.Equal(t, 0, p.Live())
}
