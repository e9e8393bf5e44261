package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/provision"
)

// Connection are the options for building the connection string.
type Connection struct {
	Host           string        `arg:"--host,env:PGRESET_HOST" help:"server host" placeholder:"HOST"`
	Port           string        `arg:"-p,--port,env:PGRESET_PORT" help:"server port" placeholder:"PORT"`
	Database       string        `arg:"--database,env:PGRESET_DATABASE" help:"database to recreate" placeholder:"DB"`
	User           string        `arg:"-U,--user,env:PGRESET_USER" help:"user" placeholder:"USER"`
	Password       string        `arg:"--password,env:PGRESET_PASSWORD" placeholder:"PASSWORD"`
	SSLMode        string        `arg:"--sslmode,env:PGRESET_SSLMODE" help:"libpq sslmode (default disable)" placeholder:"MODE"`
	AdminDatabase  string        `arg:"--admin-db,env:PGRESET_ADMIN_DATABASE" help:"database used for CREATE/DROP (default postgres)" placeholder:"DB"`
	Schema         string        `arg:"--schema,env:PGRESET_SCHEMA" help:"schema to count and reconcile (default public)" placeholder:"SCHEMA"`
	ConnectTimeout time.Duration `arg:"--connect-timeout,env:PGRESET_CONNECT_TIMEOUT" help:"connection timeout (default 10s)" placeholder:"DURATION"`
}

// CLIArgs are the command line options.
type CLIArgs struct {
	Connection

	Count bool `arg:"-c,--count" help:"count rows in every table, change nothing"`
	Drop  bool `arg:"-d,--drop" help:"recreate the database empty"`
	Reset bool `arg:"-r,--reset" help:"recreate the database and run the first script group"`
	Total bool `arg:"-t,--total" help:"recreate the database, run every group in order and reset sequences"`
	Check bool `arg:"--check" help:"parse every script group offline"`

	Yes     bool   `arg:"-y,--yes" help:"do not ask for confirmation (drop, reset, total)"`
	Verbose bool   `arg:"-v,--verbose" help:"debug logging"`
	Dir     string `arg:"--dir,env:PGRESET_DIR" default:"./db_setup" help:"scripts directory" placeholder:"DIR"`
	EnvFile string `arg:"--env-file,env:PGRESET_ENV_FILE" help:"env file (default DIR/.env)" placeholder:"FILE"`
	Groups  string `arg:"--groups,env:PGRESET_GROUPS" default:"1_,2_,3_,4_" help:"script prefixes in apply order" placeholder:"LIST"`

	DrainTimeout time.Duration `arg:"--drain-timeout,env:PGRESET_DRAIN_TIMEOUT" default:"5s" help:"wait for terminated sessions to leave before DROP" placeholder:"DURATION"`
}

// Version implements go-arg's Versioned.
func (CLIArgs) Version() string {
	return "pgreset " + pgreset.Version().String()
}

// Description implements go-arg's Described.
func (CLIArgs) Description() string {
	return "Recreates a PostgreSQL database and loads it from ordered SQL scripts."
}

// Mode returns the single selected mode.
func (args *CLIArgs) Mode() (provision.Mode, error) {
	selected := []struct {
		on   bool
		mode provision.Mode
	}{
		{args.Count, provision.Count},
		{args.Drop, provision.Drop},
		{args.Reset, provision.Reset},
		{args.Total, provision.Staged},
		{args.Check, provision.Check},
	}

	var modes []provision.Mode
	for _, s := range selected {
		if s.on {
			modes = append(modes, s.mode)
		}
	}
	if len(modes) != 1 {
		return 0, pgreset.NewError(pgreset.ErrConfiguration, "mode", "",
			errors.New("exactly one of --count, --drop, --reset, --total or --check is required"))
	}

	mode := modes[0]
	if args.Yes && !mode.Destructive() {
		return 0, pgreset.NewError(pgreset.ErrConfiguration, "--yes", mode.String(),
			errors.New("only valid with --drop, --reset or --total"))
	}
	return mode, nil
}

// GroupList splits Groups on commas.
func (args *CLIArgs) GroupList() []string {
	var groups []string
	for _, g := range strings.Split(args.Groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// Config builds the connection config.
func (args *CLIArgs) Config() pgreset.Config {
	c := args.Connection
	return pgreset.Config{
		Host:           c.Host,
		Port:           c.Port,
		Database:       c.Database,
		User:           c.User,
		Password:       c.Password,
		SSLMode:        c.SSLMode,
		AdminDatabase:  c.AdminDatabase,
		Schema:         c.Schema,
		ConnectTimeout: c.ConnectTimeout,
	}
}

func loadEnvFile(filename string, explicit bool) error {
	filename, err := homedir.Expand(filename)
	if err != nil {
		return err
	}

	err = godotenv.Load(filename)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			// do nothing, it's not error if the default .env file does not exist
			return nil
		}
		return fmt.Errorf("cannot load env file: %w", err)
	}
	return nil
}

// parseArgs parses argv twice: once to find the env file, then again after
// loading it so env tags see its values. Flags override the environment which
// overrides the env file.
func parseArgs(argv []string) (*CLIArgs, *arg.Parser, error) {
	var pre CLIArgs
	parser, err := arg.NewParser(arg.Config{Program: "pgreset"}, &pre)
	if err != nil {
		return nil, nil, err
	}
	if err := parser.Parse(argv); err != nil {
		return &pre, parser, err
	}

	envFile, explicit := pre.EnvFile, pre.EnvFile != ""
	if !explicit {
		envFile = filepath.Join(pre.Dir, ".env")
	}
	if err := loadEnvFile(envFile, explicit); err != nil {
		return &pre, parser, pgreset.NewError(pgreset.ErrConfiguration, "env file", envFile, err)
	}

	var args CLIArgs
	parser, err = arg.NewParser(arg.Config{Program: "pgreset"}, &args)
	if err != nil {
		return nil, nil, err
	}
	if err := parser.Parse(argv); err != nil {
		return &args, parser, err
	}
	return &args, parser, nil
}
