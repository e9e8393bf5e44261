package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	survey "gopkg.in/AlecAivazis/survey.v1"
	"gopkg.in/AlecAivazis/survey.v1/terminal"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/provision"
)

func TestReportRows(t *testing.T) {
	var buf bytes.Buffer
	newConsoleWriter(&buf, false).report(&provision.Report{
		Mode: provision.Count,
		Rows: pgreset.TableRowReport{
			Database: "inventory",
			Tables: []pgreset.TableCount{
				{Table: "customers", Rows: 35},
				{Table: "orders", Rows: 1200},
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "inventory (2 tables)")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "1,235")
}

func TestReportBatchListsFailures(t *testing.T) {
	var buf bytes.Buffer
	newConsoleWriter(&buf, false).report(&provision.Report{
		Mode:    provision.Staged,
		Created: true,
		Plan:    provision.Plan{Database: "inventory"},
		Batch: pgreset.BatchReport{Results: []pgreset.ExecutionResult{
			{Script: "1_schema.sql", Outcome: pgreset.Success, Encoding: "utf-8", Elapsed: time.Second},
			{Script: "2_seed.sql", Outcome: pgreset.Failed, Err: errors.New("syntax error at line=3")},
			{Script: "3_empty.sql", Outcome: pgreset.SkippedEmpty},
		}},
		Sequences: []pgreset.ReconcileResult{
			{Table: "orders", Sequence: "public.orders_id_seq", Outcome: pgreset.SequenceReset, Value: 1000, Called: true},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "created database inventory")
	assert.Contains(t, out, "skipped (empty)")
	assert.Contains(t, out, "FAILED 2_seed.sql: syntax error at line=3")
	assert.Contains(t, out, "1,001")
}

func TestConfirmShowsPlan(t *testing.T) {
	var buf bytes.Buffer
	c := newConfirmer(newConsoleWriter(&buf, false))
	c.ask = func(p survey.Prompt, response interface{}, v survey.Validator) error {
		*(response.(*bool)) = true
		return nil
	}

	ok, err := c.Confirm(provision.Plan{
		Mode:     provision.Reset,
		Target:   "grace@localhost:5432/inventory",
		Database: "inventory",
		Missing:  []string{"1_"},
	})
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "grace@localhost:5432/inventory")
	assert.Contains(t, buf.String(), "no script for 1_*")
	assert.Contains(t, buf.String(), "ALL DATA IN inventory WILL BE LOST")
}

func TestConfirmDeclined(t *testing.T) {
	var buf bytes.Buffer
	c := newConfirmer(newConsoleWriter(&buf, false))
	c.ask = func(p survey.Prompt, response interface{}, v survey.Validator) error {
		return nil
	}

	ok, err := c.Confirm(provision.Plan{Mode: provision.Drop, Database: "inventory"})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "leave it empty")
}

func TestConfirmCtrlCIsCancel(t *testing.T) {
	var buf bytes.Buffer
	c := newConfirmer(newConsoleWriter(&buf, false))
	c.ask = func(p survey.Prompt, response interface{}, v survey.Validator) error {
		return terminal.InterruptErr
	}

	ok, err := c.Confirm(provision.Plan{Mode: provision.Reset, Database: "inventory"})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, pgreset.ErrCancelled))

	buf.Reset()
	assert.Equal(t, exitOK, exitCode(newConsoleWriter(&buf, false), err))
	assert.Contains(t, buf.String(), "cancelled")
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	out := newConsoleWriter(&buf, false)

	assert.Equal(t, exitOK, exitCode(out, nil))
	assert.Equal(t, exitOK, exitCode(out, pgreset.NewError(pgreset.ErrCancelled, "drop", "inventory", nil)))
	assert.Contains(t, buf.String(), "cancelled")
	assert.Equal(t, exitConfig, exitCode(out, pgreset.NewError(pgreset.ErrConfiguration, "missing", "password", nil)))
	assert.Equal(t, exitInterrupted, exitCode(out, pgreset.NewError(pgreset.ErrInterrupted, "run", "2_seed.sql", nil)))
	assert.Equal(t, exitFailed, exitCode(out, pgreset.NewError(pgreset.ErrBatchFailed, "staged", "inventory", nil)))
	assert.Equal(t, exitFailed, exitCode(out, pgreset.NewError(pgreset.ErrConnection, "connect", "inventory", nil)))
}

func TestRunConfigurationErrorExitsTwo(t *testing.T) {
	clearEnv(t)
	// no credentials anywhere
	assert.Equal(t, exitConfig, run([]string{"-c", "--dir", t.TempDir()}))
	assert.Equal(t, exitConfig, run([]string{"-c", "-y", "--dir", t.TempDir()}))
}
