package services

import (
	"context"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/orm"
)

// CourseService defines the interface for course-related operations
type CourseService interface {
	GetCourse(ctx context.Context, id int64, include []string) (*models.Course, error)
	GetCourses(ctx context.Context) ([]*models.Course, error)
	GetStats(ctx context.Context, minStudents *int64) (*dto.CourseStatsResponse, error)
}

// courseServiceImpl implements the CourseService interface
type courseServiceImpl struct {
	factory *orm.Factory
}

// NewCourseService creates a new course service instance
func NewCourseService(f *orm.Factory) CourseService {
	return &courseServiceImpl{factory: f}
}

// GetCourse retrieves a course with the requested associations
func (s *courseServiceImpl) GetCourse(ctx context.Context, id int64, include []string) (course *models.Course, err error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		found, ok, err := r.Courses.FindWith(ctx, id, include...)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("course", id)
		}
		course = found
		return nil
	})
	return course, err
}

// GetCourses lists every course with its teacher
func (s *courseServiceImpl) GetCourses(ctx context.Context) (courses []*models.Course, err error) {
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		courses, err = r.Courses.FindAll(ctx)
		return err
	})
	return courses, err
}

// GetStats returns enrollment counts per course and per student age. With
// minStudents only courses with at least that many students are listed.
func (s *courseServiceImpl) GetStats(ctx context.Context, minStudents *int64) (stats *dto.CourseStatsResponse, err error) {
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		var courses []dto.CourseWithCount
		if minStudents != nil {
			courses, err = r.Courses.FindCoursesWithMinStudents(ctx, *minStudents)
		} else {
			courses, err = r.Courses.FindAllWithStudentCount(ctx)
		}
		if err != nil {
			return err
		}
		ages, err := r.Students.CountByAge(ctx)
		if err != nil {
			return err
		}
		stats = &dto.CourseStatsResponse{Courses: courses, Ages: ages}
		return nil
	})
	return stats, err
}
