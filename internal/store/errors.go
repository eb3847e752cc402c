package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the row changed between read and write.
	ErrConflict = errors.New("concurrent update, retry the request")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("user already exists")
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isBusy reports whether err is sqlite refusing a write because another
// connection holds the lock.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// writeErr maps lock contention onto ErrConflict and wraps everything else.
func writeErr(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
