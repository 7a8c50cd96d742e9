package repositories

import (
	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/orm"
)

// Repositories holds all the repository instances of one session
type Repositories struct {
	Session  *orm.Session
	Students *StudentRepository
	Courses  *CourseRepository
	Teachers *TeacherRepository
	Profiles *Managed[*models.Profile, int64]
}

// NewRepositories initializes all repositories over sess
func NewRepositories(sess *orm.Session) *Repositories {
	return &Repositories{
		Session:  sess,
		Students: NewStudentRepository(sess),
		Courses:  NewCourseRepository(sess),
		Teachers: NewTeacherRepository(sess),
		Profiles: NewManaged[*models.Profile, int64](sess),
	}
}
