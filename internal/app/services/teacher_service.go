package services

import (
	"context"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// Teacher include names accepted by GetTeacher
const (
	IncludeCourses  = "courses"
	IncludeStudents = "students"
)

// TeacherService defines the interface for teacher-related operations
type TeacherService interface {
	GetTeachers(ctx context.Context, name, courseTitle *string) ([]*models.Teacher, error)
	GetTeacher(ctx context.Context, id int64, include []string) (*models.Teacher, error)
	GetIdleTeachers(ctx context.Context) ([]*models.Teacher, error)
	GetTeachersOfStudent(ctx context.Context, studentID int64) ([]*models.Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) error
}

// teacherServiceImpl implements the TeacherService interface
type teacherServiceImpl struct {
	factory *orm.Factory
}

// NewTeacherService creates a new teacher service instance
func NewTeacherService(f *orm.Factory) TeacherService {
	return &teacherServiceImpl{factory: f}
}

// GetTeachers lists teachers filtered by name and course title
func (s *teacherServiceImpl) GetTeachers(ctx context.Context, name, courseTitle *string) (teachers []*models.Teacher, err error) {
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		teachers, err = r.Teachers.FindByFilters(ctx, name, courseTitle)
		return err
	})
	return teachers, err
}

// GetTeacher retrieves a teacher. "courses" loads the courses, "students"
// loads the courses with their students.
func (s *teacherServiceImpl) GetTeacher(ctx context.Context, id int64, include []string) (teacher *models.Teacher, err error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	var courses, students bool
	for _, inc := range include {
		switch inc {
		case IncludeCourses:
			courses = true
		case IncludeStudents:
			students = true
		default:
			return nil, apperrors.NewInvalidArgument("include", "unknown association %q", inc)
		}
	}

	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		var found *models.Teacher
		var ok bool
		switch {
		case students:
			found, ok, err = r.Teachers.FindWithCoursesAndStudents(ctx, id)
		case courses:
			found, ok, err = r.Teachers.FindWithCourses(ctx, id)
		default:
			found, ok, err = r.Teachers.Read(ctx, id)
		}
		if err != nil {
			return err
		}
		if !ok {
			return notFound("teacher", id)
		}
		teacher = found
		return nil
	})
	return teacher, err
}

// GetIdleTeachers lists teachers without courses
func (s *teacherServiceImpl) GetIdleTeachers(ctx context.Context) (teachers []*models.Teacher, err error) {
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		teachers, err = r.Teachers.FindTeachersWithoutCourses(ctx)
		return err
	})
	return teachers, err
}

// GetTeachersOfStudent lists the teachers of the student's courses
func (s *teacherServiceImpl) GetTeachersOfStudent(ctx context.Context, studentID int64) (teachers []*models.Teacher, err error) {
	if err := validID("id", studentID); err != nil {
		return nil, err
	}
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		teachers, err = r.Teachers.FindTeachingStudent(ctx, studentID)
		return err
	})
	return teachers, err
}

// DeleteTeacher removes a teacher; its courses follow the mapped cascade
// policy
func (s *teacherServiceImpl) DeleteTeacher(ctx context.Context, id int64) error {
	if err := validID("id", id); err != nil {
		return err
	}
	err := write(ctx, s.factory, func(ctx context.Context, r *repositories.Repositories) error {
		found, ok, err := r.Teachers.Read(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("teacher", id)
		}
		return r.Teachers.Delete(ctx, found)
	})
	if err == nil {
		logger.Info().Int64("id", id).Msg("Teacher deleted")
	}
	return err
}
