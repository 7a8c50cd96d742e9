package services

import (
	"context"
	"fmt"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// StudentService defines the interface for student-related operations
type StudentService interface {
	SearchStudents(ctx context.Context, search repositories.StudentSearch) (*repositories.StudentPage, error)
	GetStudent(ctx context.Context, id int64, include []string) (*models.Student, error)
	CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error)
	UpdateStudent(ctx context.Context, id int64, req dto.UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	Enroll(ctx context.Context, studentID, courseID int64) (*models.Student, error)
	Drop(ctx context.Context, studentID, courseID int64) (*models.Student, error)
}

// studentServiceImpl implements the StudentService interface
type studentServiceImpl struct {
	factory *orm.Factory
}

// NewStudentService creates a new student service instance
func NewStudentService(f *orm.Factory) StudentService {
	return &studentServiceImpl{factory: f}
}

// SearchStudents returns one page of students matching the filters
func (s *studentServiceImpl) SearchStudents(ctx context.Context, search repositories.StudentSearch) (page *repositories.StudentPage, err error) {
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		page, err = r.Students.Search(ctx, search)
		return err
	})
	return page, err
}

// GetStudent retrieves a student with the requested associations
func (s *studentServiceImpl) GetStudent(ctx context.Context, id int64, include []string) (student *models.Student, err error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	err = read(ctx, s.factory, func(r *repositories.Repositories) error {
		found, ok, err := r.Students.FindWith(ctx, id, include...)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("student", id)
		}
		student = found
		return nil
	})
	return student, err
}

// CreateStudent creates a student with its profile, phones and initial
// enrollments in one transaction
func (s *studentServiceImpl) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (student *models.Student, err error) {
	student = models.NewStudent(req.Name, req.Age)
	applyAddress(student, req.Address)
	for _, phone := range req.Phones {
		student.AddPhone(phone)
	}
	if req.Profile != nil {
		student.SetProfile(models.NewProfile(req.Profile.Address, req.Profile.Phone))
	}

	err = write(ctx, s.factory, func(ctx context.Context, r *repositories.Repositories) error {
		for _, courseID := range req.CourseIDs {
			course, ok, err := r.Courses.Read(ctx, courseID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("course", courseID)
			}
			student.AddCourse(course)
		}
		return r.Students.Create(ctx, student)
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("id", student.ID).Msg("Student created")
	return student, nil
}

// UpdateStudent replaces the scalar fields of a student, checking the
// version the caller read
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, id int64, req dto.UpdateStudentRequest) (student *models.Student, err error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	err = write(ctx, s.factory, func(ctx context.Context, r *repositories.Repositories) error {
		found, ok, err := r.Students.Read(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("student", id)
		}
		found.Version = req.Version
		found.Name = req.Name
		found.Age = req.Age
		found.Address = nil
		applyAddress(found, req.Address)
		if err := r.Students.Update(ctx, found); err != nil {
			return err
		}
		student = found
		return nil
	})
	return student, err
}

// DeleteStudent removes a student with its profile, phones and enrollments
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, id int64) error {
	if err := validID("id", id); err != nil {
		return err
	}
	return write(ctx, s.factory, func(ctx context.Context, r *repositories.Repositories) error {
		found, ok, err := r.Students.Read(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("student", id)
		}
		return r.Students.Delete(ctx, found)
	})
}

// ReasonAlreadyEnrolled is the error code of a repeated enrollment
const ReasonAlreadyEnrolled = "ALREADY_ENROLLED"

// Enroll adds a course to a student
func (s *studentServiceImpl) Enroll(ctx context.Context, studentID, courseID int64) (*models.Student, error) {
	return s.changeEnrollment(ctx, studentID, courseID, func(student *models.Student, course *models.Course) error {
		courses, err := student.Courses()
		if err != nil {
			return err
		}
		for _, c := range courses {
			if c.ID == course.ID {
				return apperrors.NewCustomError(apperrors.ErrConstraintViolation,
					fmt.Sprintf("student %d already takes course %d", studentID, courseID)).
					WithCode(ReasonAlreadyEnrolled)
			}
		}
		student.AddCourse(course)
		return nil
	})
}

// Drop removes a course from a student
func (s *studentServiceImpl) Drop(ctx context.Context, studentID, courseID int64) (*models.Student, error) {
	return s.changeEnrollment(ctx, studentID, courseID, func(student *models.Student, course *models.Course) error {
		courses, err := student.Courses()
		if err != nil {
			return err
		}
		for _, c := range courses {
			if c.ID == course.ID {
				student.RemoveCourse(c)
				return nil
			}
		}
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("student %d does not take course %d", studentID, courseID))
	})
}

func (s *studentServiceImpl) changeEnrollment(ctx context.Context, studentID, courseID int64, change func(*models.Student, *models.Course) error) (student *models.Student, err error) {
	if err := validID("id", studentID); err != nil {
		return nil, err
	}
	if err := validID("courseId", courseID); err != nil {
		return nil, err
	}
	err = write(ctx, s.factory, func(ctx context.Context, r *repositories.Repositories) error {
		found, ok, err := r.Students.FindWithCourses(ctx, studentID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("student", studentID)
		}
		course, ok, err := r.Courses.Read(ctx, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("course", courseID)
		}
		if err := change(found, course); err != nil {
			return err
		}
		if err := r.Students.Update(ctx, found); err != nil {
			return err
		}
		student = found
		return nil
	})
	return student, err
}

func applyAddress(s *models.Student, a *dto.AddressRequest) {
	if a == nil {
		return
	}
	s.Address = &models.Address{Street: a.Street, City: a.City, ZipCode: a.ZipCode}
}
