// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteUniqueViolationCode is the SQLite primary result code (SQLITE_CONSTRAINT)
// reported when a write is rejected by a UNIQUE or PRIMARY KEY constraint.
const SQLiteUniqueViolationCode = 19

// ErrDuplicate matches, via errors.Is, any WriteError whose cause is a
// unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// engine describes how a storage engine reports a unique-key violation.
type engine struct {
	name string
	// code extracts the engine's primary result code from err's chain.
	code                func(err error) (int, bool)
	uniqueViolationCode int
}

// engines is consulted in order by IsUniqueConstraintViolation.
var engines = []engine{
	{name: "sqlite", code: sqliteResultCode, uniqueViolationCode: SQLiteUniqueViolationCode},
}

// IsUniqueConstraintViolation reports whether err carries an engine error
// whose result code is that engine's unique constraint code.
// Any other shape, including nil, is not a violation.
func IsUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	for _, e := range engines {
		if code, ok := e.code(err); ok && code == e.uniqueViolationCode {
			return true
		}
	}
	return false
}

// WriteError is returned by ExecWrite when a statement that modifies the
// database fails. Err is the engine error and may be nil.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return e.Op + ": write failed"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is lets callers test for ErrDuplicate without knowing the engine.
func (e *WriteError) Is(target error) bool {
	return target == ErrDuplicate && IsUniqueConstraintViolation(e.Err)
}

// execer is satisfied by *sql.DB, *sql.Tx, and *sql.Conn.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecWrite runs a write statement and wraps any failure in a WriteError
// labelled op.
func ExecWrite(ctx context.Context, db execer, op, query string, args ...any) (sql.Result, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &WriteError{Op: op, Err: err}
	}
	return res, nil
}
