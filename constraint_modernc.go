// Copyright (c) 2026 Michael D Henderson. All rights reserved.

//go:build !mattn

package sqliteboot

import (
	"errors"

	"modernc.org/sqlite"
)

// sqliteResultCode returns the primary result code of the first modernc
// error in err's chain. modernc reports extended codes, so the low byte is
// kept (SQLITE_CONSTRAINT_UNIQUE 2067 becomes SQLITE_CONSTRAINT 19).
func sqliteResultCode(err error) (int, bool) {
	var sErr *sqlite.Error
	if !errors.As(err, &sErr) {
		return 0, false
	}
	return sErr.Code() & 0xff, true
}
