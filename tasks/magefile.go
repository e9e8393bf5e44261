//go:build mage

// Tasks for pgreset. Run from the repository root with `mage -d tasks -w . <target>`.
package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// local test database, see Createdb
var testEnv = map[string]string{
	"PGRESET_HOST":     "localhost",
	"PGRESET_PORT":     "5432",
	"PGRESET_DATABASE": "pgreset_test",
	"PGRESET_USER":     "pgreset",
	"PGRESET_PASSWORD": "!test",
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Build builds the CLI into bin/.
func Build() error {
	mg.Deps(Vet)
	return sh.RunV("go", "build", "-o", "bin/pgreset", "./cmd/pgreset")
}

// Install installs the CLI.
func Install() error {
	return sh.RunV("go", "install", "./cmd/pgreset")
}

// Createdb recreates the local test database without prompting.
func Createdb() error {
	mg.Deps(Build)
	return sh.RunWithV(testEnv, "bin/pgreset", "--drop", "--yes")
}

// Count prints row counts of the local test database.
func Count() error {
	mg.Deps(Build)
	return sh.RunWithV(testEnv, "bin/pgreset", "--count")
}

// Clean removes build output.
func Clean() error {
	return os.RemoveAll("bin")
}
