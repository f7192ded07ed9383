package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// IsDuplicateKeyError reports whether err is a unique-constraint violation,
// for both the production mysql driver and the sqlite driver used in tests.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const (
	mysqlDeadlock    = 1213
	mysqlLockTimeout = 1205
)

// IsWriteConflictError reports whether err is a transient serialization
// failure worth retrying, as opposed to a constraint violation or a real
// database error.
func IsWriteConflictError(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDeadlock || mysqlErr.Number == mysqlLockTimeout
	}

	return strings.Contains(err.Error(), "database is locked")
}
