package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// IsUniqueViolation reports whether the provided error references a unique
// violation constraint. When constraintName is provided, the helper looks for
// the constraint text in the error message. The check is string-based so it
// covers both Postgres and the sqlite driver used in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsLockNotAvailable reports whether the error came from a NOWAIT or
// lock_timeout row lock acquisition that could not proceed.
func IsLockNotAvailable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "could not obtain lock") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "canceling statement due to lock timeout") ||
		strings.Contains(msg, "database is locked")
}

// ApplyLockTimeout bounds row-lock waits for the remainder of the transaction
// so contended requests fail fast instead of queueing. Only Postgres honors
// lock_timeout; on other dialects (sqlite in tests) this is a no-op and the
// unique index remains the arbiter.
func ApplyLockTimeout(tx *gorm.DB, wait time.Duration) error {
	if tx == nil || wait <= 0 {
		return nil
	}
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	// SET does not take bind parameters; the value is an integer of our own
	// making, never user input.
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())).Error
}
