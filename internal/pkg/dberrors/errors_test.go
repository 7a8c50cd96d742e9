package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       string
		constraint string
	}{
		{
			name:       "pgx unique",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "student_course_pkey"},
			kind:       KindUnique,
			constraint: "student_course_pkey",
		},
		{
			name: "pgx foreign key wrapped",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503", ConstraintName: "courses_teacher_id_fkey"}),
			kind: KindForeignKey, constraint: "courses_teacher_id_fkey",
		},
		{
			name: "pq unique",
			err:  &pq.Error{Code: "23505", Constraint: "profiles_student_id_key"},
			kind: KindUnique, constraint: "profiles_student_id_key",
		},
		{
			name: "mysql duplicate entry",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
			kind: KindUnique,
		},
		{
			name: "mysql child row",
			err:  &mysql.MySQLError{Number: 1452},
			kind: KindForeignKey,
		},
		{
			name:       "sqlite message fallback",
			err:        errors.New("constraint failed: UNIQUE constraint failed: student_course.student_id, student_course.course_id (2067)"),
			kind:       KindUnique,
			constraint: "student_course.student_id, student_course.course_id",
		},
		{
			name: "sqlite foreign key message",
			err:  errors.New("FOREIGN KEY constraint failed"),
			kind: KindForeignKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate(tt.err)
			require.ErrorIs(t, err, apperrors.ErrConstraintViolation)

			var ce *apperrors.ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.constraint, ce.Constraint)
			assert.ErrorIs(t, err, tt.err, "the driver error stays reachable")
		})
	}
}

func TestTranslatePassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, Translate(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, Translate(plain))

	pgErr := &pgconn.PgError{Code: "40001"}
	assert.Same(t, error(pgErr), Translate(pgErr))

	already := &apperrors.ConstraintError{Kind: KindUnique}
	assert.Same(t, error(already), Translate(already))
}

func TestIsDuplicateConstraintError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "students_name_key"}
	assert.True(t, IsDuplicateConstraintError(err, "students_name_key"))
	assert.True(t, IsDuplicateConstraintError(err, ""))
	assert.False(t, IsDuplicateConstraintError(err, "other"))
	assert.False(t, IsForeignKeyError(err))
	assert.True(t, IsForeignKeyError(&mysql.MySQLError{Number: 1451}))
}
