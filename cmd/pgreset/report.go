package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/olekukonko/tablewriter"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/provision"
	"github.com/mgutz/pgreset/scripts"
)

// console writes the human readable report.
type console struct {
	out  io.Writer
	ok   func(string) string
	warn func(string) string
	fail func(string) string
	bold func(string) string
}

func plain(s string) string { return s }

// newConsole colors output only when f is a terminal.
func newConsole(f *os.File) *console {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return newConsoleWriter(colorable.NewColorable(f), tty)
}

func newConsoleWriter(w io.Writer, color bool) *console {
	c := &console{out: w, ok: plain, warn: plain, fail: plain, bold: plain}
	if color {
		c.ok = ansi.ColorFunc("green")
		c.warn = ansi.ColorFunc("yellow")
		c.fail = ansi.ColorFunc("red+b")
		c.bold = ansi.ColorFunc("white+b")
	}
	return c
}

func (c *console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) table(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	return table
}

// report prints whatever the run produced.
func (c *console) report(r *provision.Report) {
	if r == nil {
		return
	}
	switch r.Mode {
	case provision.Count:
		if r.Rows.Database != "" {
			c.rows(r.Rows)
		}
	case provision.Check:
		c.checks(r.Checks)
	default:
		if r.Created {
			c.printf("%s database %s\n", c.ok("created"), r.Plan.Database)
		}
		if len(r.Batch.Results) > 0 {
			c.batch(r.Batch)
		}
		if len(r.Sequences) > 0 {
			c.sequences(r.Sequences)
		}
	}
}

func (c *console) rows(r pgreset.TableRowReport) {
	c.printf("%s %s (%d tables)\n\n", c.bold("Database"), r.Database, len(r.Tables))

	table := c.table("Table", "Rows")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, t := range r.Tables {
		table.Append([]string{t.Table, humanize.Comma(t.Rows)})
	}
	table.SetFooter([]string{"TOTAL", humanize.Comma(r.Total())})
	table.Render()
}

func (c *console) batch(b pgreset.BatchReport) {
	table := c.table("Script", "Encoding", "Result", "Elapsed")
	for _, r := range b.Results {
		table.Append([]string{r.Script, r.Encoding, c.outcome(r.Outcome), r.Elapsed.Round(time.Millisecond).String()})
	}
	table.Render()

	for _, r := range b.Failures() {
		c.printf("%s %s: %s\n", c.fail("FAILED"), r.Script, r.Reason())
	}
}

func (c *console) outcome(o pgreset.Outcome) string {
	switch o {
	case pgreset.Success:
		return c.ok(o.String())
	case pgreset.SkippedEmpty:
		return c.warn(o.String())
	}
	return c.fail(o.String())
}

func (c *console) sequences(results []pgreset.ReconcileResult) {
	table := c.table("Table", "Sequence", "Next", "Result")
	for _, r := range results {
		next := ""
		if r.Outcome == pgreset.SequenceReset {
			next = humanize.Comma(r.NextID())
		}
		result := r.Outcome.String()
		switch r.Outcome {
		case pgreset.SequenceReset:
			result = c.ok(result)
		case pgreset.SequenceFailed:
			result = c.fail(result)
		}
		table.Append([]string{r.Table, r.Sequence, next, result})
	}
	table.Render()

	for _, r := range results {
		if r.Err != nil {
			c.printf("%s %s: %v\n", c.fail("FAILED"), r.Table, r.Err)
		}
	}
}

func (c *console) checks(results []scripts.CheckResult) {
	table := c.table("Script", "Encoding", "Statements", "Result")
	for _, r := range results {
		result := c.ok("ok")
		switch {
		case !r.OK():
			result = c.fail("failed")
		case r.Empty:
			result = c.warn("empty")
		}
		table.Append([]string{r.Script, r.Encoding, fmt.Sprint(r.Statements), result})
	}
	table.Render()

	for _, r := range results {
		if r.Err != nil {
			c.printf("%s %s: %v\n", c.fail("FAILED"), r.Script, r.Err)
		}
	}
}

// plan describes a destructive run before it is confirmed.
func (c *console) plan(p provision.Plan) {
	c.printf("%s\n", c.warn("=== WARNING ==="))
	c.printf("  %-16s %s\n", "connect to", p.Target)
	c.printf("  %-16s %s (if it exists)\n", "drop database", p.Database)
	c.printf("  %-16s %s\n", "create database", p.Database)
	switch p.Mode {
	case provision.Drop:
		c.printf("  leave it empty\n")
	default:
		for _, s := range p.Scripts {
			c.printf("  %-16s %s\n", "run", s.Name())
		}
		for _, prefix := range p.Missing {
			c.printf("  %s %s*\n", c.warn("no script for"), prefix)
		}
		if p.Mode == provision.Staged {
			c.printf("  reset sequences\n")
		}
	}
	c.printf("\n%s\n\n", c.fail("ALL DATA IN "+p.Database+" WILL BE LOST"))
}
