// Package repository implements MySQL persistence for the reservation core.
// Repositories speak raw SQL through database/sql; business transactions that
// span tables (reserve, confirm, expire) live here as single methods so the
// service layer never handles *sql.Tx directly.  Domain-visible failures are
// classified with the fault package; driver errors this package needs to
// recognise are detected via helpers in this file.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateReference is returned when inserting a ticket collides on the
// booking_reference unique index.  The reservation service regenerates the
// reference and retries a bounded number of times.
var ErrDuplicateReference = errors.New("repository: duplicate booking reference")

// mysqlDuplicateEntry is the server error number for unique-index violations.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether the error is a MySQL unique-index violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
