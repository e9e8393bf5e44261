package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	log "github.com/mgutz/logxi"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/provision"
	"github.com/mgutz/pgreset/runner"
	"github.com/mgutz/pgreset/scripts"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailed      = 1
	exitConfig      = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	out := newConsole(os.Stdout)

	args, parser, err := parseArgs(argv)
	switch {
	case err == arg.ErrHelp:
		parser.WriteHelp(os.Stdout)
		return exitOK
	case err == arg.ErrVersion:
		fmt.Println(args.Version())
		return exitOK
	case err != nil:
		if parser != nil {
			parser.WriteUsage(os.Stderr)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitConfig
	}

	if args.Verbose {
		pgreset.SetLogLevel(log.LevelDebug)
	}

	mode, err := args.Mode()
	if err != nil {
		parser.WriteUsage(os.Stderr)
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := args.Config()
	prov := provision.New(cfg, runner.NewConnector(cfg), scripts.NewLocator(args.Dir))
	prov.Recreator().DrainTimeout = args.DrainTimeout

	confirm := newConfirmer(out).Confirm
	if args.Yes {
		confirm = provision.AlwaysConfirm
	}

	report, err := prov.Run(ctx, provision.Options{
		Mode:    mode,
		Groups:  args.GroupList(),
		Confirm: confirm,
	})
	out.report(report)

	if ctx.Err() != nil && err != nil {
		err = pgreset.NewError(pgreset.ErrInterrupted, mode.String(), cfg.Database, err)
	}
	return exitCode(out, err)
}

// exitCode prints err and maps it to the process exit code.
func exitCode(out *console, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pgreset.ErrCancelled):
		out.printf("cancelled\n")
		return exitOK
	case errors.Is(err, pgreset.ErrInterrupted), errors.Is(err, context.Canceled):
		out.printf("%s %v\n", out.fail("interrupted:"), err)
		return exitInterrupted
	case errors.Is(err, pgreset.ErrConfiguration):
		out.printf("%s %v\n", out.fail("error:"), err)
		return exitConfig
	}
	out.printf("%s %v\n", out.fail("error:"), err)
	return exitFailed
}
