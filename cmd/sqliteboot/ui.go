// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mdhender/sqliteboot"
)

// Exit codes, following the CLI conventions used across our tools.
const (
	exitSuccess  = 0
	exitConfig   = 1
	exitDatabase = 2
	exitInput    = 4
)

var (
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

// cliError carries what went wrong, how to fix it, and the exit code.
type cliError struct {
	Message  string
	Fix      string
	ExitCode int
	Err      error
}

func (e *cliError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *cliError) Unwrap() error {
	return e.Err
}

func configError(msg, fix string, err error) error {
	return &cliError{Message: msg, Fix: fix, ExitCode: exitConfig, Err: err}
}

func inputError(msg, fix string, err error) error {
	return &cliError{Message: msg, Fix: fix, ExitCode: exitInput, Err: err}
}

// databaseError classifies a failure from the store. Directory failures get
// their own advice since the database was never opened.
func databaseError(msg string, err error) error {
	fix := "Check the database path and the migration scripts"
	var dirErr *sqliteboot.DirectoryCreationError
	switch {
	case errors.As(err, &dirErr):
		fix = fmt.Sprintf("Make sure %s can be created (permissions, disk space, no file in the way)", dirErr.Path)
	case errors.Is(err, sqliteboot.ErrDuplicate):
		fix = "A migration was recorded twice; check for another process bootstrapping the same file"
	case errors.Is(err, sqliteboot.ErrMemoryInProduction):
		fix = "Set database.path to a file or set allow_memory_in_production"
	}
	return &cliError{Message: msg, Fix: fix, ExitCode: exitDatabase, Err: err}
}

// exitCode returns the code main should exit with for err.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}
	return exitDatabase
}

// printError writes err to w in the Error/Fix layout.
func printError(w io.Writer, err error) {
	var ce *cliError
	if !errors.As(err, &ce) {
		red.Fprintf(w, "Error: ")
		fmt.Fprintln(w, err)
		return
	}
	red.Fprintf(w, "Error: ")
	fmt.Fprintln(w, ce.Error())
	if ce.Fix != "" {
		yellow.Fprintf(w, "Fix:   ")
		fmt.Fprintln(w, ce.Fix)
	}
}
