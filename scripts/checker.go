package scripts

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/mgutz/pgreset"
)

// CheckResult is the offline parse of one script.
type CheckResult struct {
	Script   string
	Encoding string
	// Statements is the number of top-level statements parsed.
	Statements int
	Empty      bool
	Err        error
}

// OK is true when the script decoded and parsed.
func (r CheckResult) OK() bool {
	return r.Err == nil
}

// Checker parses scripts with the PostgreSQL grammar without connecting to a
// server.
type Checker struct{}

// Check parses every script in order.
func (c *Checker) Check(scripts []pgreset.ResolvedScript) []CheckResult {
	results := make([]CheckResult, 0, len(scripts))
	for _, script := range scripts {
		results = append(results, c.CheckOne(script))
	}
	return results
}

// CheckOne decodes and parses a single script.
func (c *Checker) CheckOne(script pgreset.ResolvedScript) CheckResult {
	result := CheckResult{Script: script.Name()}

	text, enc, err := ReadFile(script.Path)
	if err == errUndecodable {
		result.Err = pgreset.NewError(pgreset.ErrScriptDecode, "decode", result.Script, err)
		return result
	}
	if err != nil {
		result.Err = pgreset.NewError(pgreset.ErrScriptNotFound, "read", result.Script, err)
		return result
	}
	result.Encoding = enc

	tree, err := pg_query.Parse(text)
	if err != nil {
		logger.Debug("parse failed", "script", result.Script, "err", err)
		result.Err = pgreset.NewError(pgreset.ErrScriptExecution, "parse", result.Script, err)
		return result
	}
	result.Statements = len(tree.Stmts)
	result.Empty = result.Statements == 0
	return result
}
