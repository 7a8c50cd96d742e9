package dberrors

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// PostgreSQL SQLSTATE codes (class 23)
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451
	mysqlForeignKeyChild  = 1452
	mysqlCheckViolation   = 3819
)

// Constraint kinds reported in apperrors.ConstraintError
const (
	KindUnique     = "unique"
	KindForeignKey = "foreign_key"
	KindCheck      = "check"
)

// IsDuplicateConstraintError checks if the error is a unique violation error
// for a specific constraint. An empty constraintName matches any unique violation.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	kind, name := classify(err)
	return kind == KindUnique && (constraintName == "" || name == constraintName)
}

// IsForeignKeyError reports whether err is a foreign-key violation.
func IsForeignKeyError(err error) bool {
	kind, _ := classify(err)
	return kind == KindForeignKey
}

// Translate converts a driver-level constraint failure into an
// *apperrors.ConstraintError. Any other error is returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ce *apperrors.ConstraintError
	if errors.As(err, &ce) {
		return err
	}
	kind, name := classify(err)
	if kind == "" {
		return err
	}
	return &apperrors.ConstraintError{Kind: kind, Constraint: name, Err: err}
}

func classify(err error) (kind, constraint string) {
	if err == nil {
		return "", ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgKind(pgErr.Code), pgErr.ConstraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgKind(string(pqErr.Code)), pqErr.Constraint
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return KindUnique, ""
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return KindForeignKey, ""
		case mysqlCheckViolation:
			return KindCheck, ""
		}
		return "", ""
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return KindUnique, sqliteConstraint(liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return KindForeignKey, ""
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return KindCheck, ""
		}
	}

	// Fallback for wrapped drivers that only keep the message
	msg := err.Error()
	switch {
	case containsAny(msg, "violates unique constraint", "UNIQUE constraint failed", "Error 1062"):
		return KindUnique, sqliteConstraint(msg)
	case containsAny(msg, "violates foreign key constraint", "FOREIGN KEY constraint failed", "Error 1451", "Error 1452"):
		return KindForeignKey, ""
	case containsAny(msg, "violates check constraint", "CHECK constraint failed", "Error 3819"):
		return KindCheck, ""
	}
	return "", ""
}

func pgKind(code string) string {
	switch code {
	case pgUniqueViolation:
		return KindUnique
	case pgForeignKeyViolation:
		return KindForeignKey
	case pgCheckViolation:
		return KindCheck
	}
	return ""
}

// sqliteConstraint extracts the column list SQLite reports in place of a
// constraint name ("UNIQUE constraint failed: student_course.student_id, ...").
func sqliteConstraint(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, "()"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
