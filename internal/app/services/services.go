// Package services holds the use cases of the campus API. Every call opens
// its own session from the factory; writes that touch several entities run
// in one transaction.
package services

import (
	"context"
	"fmt"

	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

// Services defined in this package:
// - StudentService: search, CRUD and enrollment of students
// - CourseService: course details and enrollment statistics
// - TeacherService: teacher listings, details and removal
type Services struct {
	Students StudentService
	Courses  CourseService
	Teachers TeacherService
}

// NewServices creates all services over one session factory
func NewServices(f *orm.Factory) *Services {
	return &Services{
		Students: NewStudentService(f),
		Courses:  NewCourseService(f),
		Teachers: NewTeacherService(f),
	}
}

// read runs fn with repositories over a fresh session
func read(ctx context.Context, f *orm.Factory, fn func(r *repositories.Repositories) error) error {
	return f.WithSession(ctx, func(sess *orm.Session) error {
		return fn(repositories.NewRepositories(sess))
	})
}

// write runs fn with repositories inside one transaction
func write(ctx context.Context, f *orm.Factory, fn func(ctx context.Context, r *repositories.Repositories) error) error {
	return f.WithTransaction(ctx, func(ctx context.Context, sess *orm.Session) error {
		return fn(ctx, repositories.NewRepositories(sess))
	})
}

// notFound reports a missing entity by name and id
func notFound(entity string, id int64) error {
	return apperrors.NewResourceNotFoundError(fmt.Sprintf("%s %d not found", entity, id))
}

func validID(name string, id int64) error {
	if id <= 0 {
		return apperrors.NewInvalidArgument(name, "must be positive, got %d", id)
	}
	return nil
}
