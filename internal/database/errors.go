package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MariaDB server error numbers the repositories translate into domain errors.
const (
	errDupEntry        = 1062 // ER_DUP_ENTRY
	errRowIsReferenced = 1451 // ER_ROW_IS_REFERENCED_2
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

// IsDuplicateEntry reports whether err is a unique key violation. Used to
// turn a concurrent insert that raced past an application pre-check into the
// same conflict error the pre-check would have produced.
func IsDuplicateEntry(err error) bool {
	return hasErrorNumber(err, errDupEntry)
}

// IsRowReferenced reports whether err is a foreign key RESTRICT violation on
// delete (a parent row still has children).
func IsRowReferenced(err error) bool {
	return hasErrorNumber(err, errRowIsReferenced)
}

// IsMissingReference reports whether err is a foreign key violation on
// insert/update (the referenced row does not exist).
func IsMissingReference(err error) bool {
	return hasErrorNumber(err, errNoReferencedRow)
}

func hasErrorNumber(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
