// Copyright (c) 2026 Michael D Henderson. All rights reserved.

//go:build mattn

package sqliteboot

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// sqliteResultCode returns the primary result code of the first
// go-sqlite3 error in err's chain.
func sqliteResultCode(err error) (int, bool) {
	var sErr sqlite3.Error
	if !errors.As(err, &sErr) {
		return 0, false
	}
	return int(sErr.Code), true
}
