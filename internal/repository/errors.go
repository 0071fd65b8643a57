// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a competition that still
// has submissions.
var ErrConflict = errors.New("conflict")

// ErrStaleStatus is returned by conditional status writes when the row no
// longer holds the status the caller read.
var ErrStaleStatus = errors.New("status changed concurrently")

// Vote rejections returned by RatingRepo.Upsert.
var (
	ErrOwnPhoto         = errors.New("photo belongs to the voter")
	ErrPhotoNotApproved = errors.New("photo not approved")
	ErrVotingClosed     = errors.New("competition not in voting phase")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
