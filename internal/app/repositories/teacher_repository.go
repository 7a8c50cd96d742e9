package repositories

import (
	"context"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/orm/query"
)

// FetchCourseStudents loads a teacher's courses and their students
const FetchCourseStudents = "courses.students"

// TeacherRepository handles teacher queries
type TeacherRepository struct {
	*Managed[*models.Teacher, int64]
}

// NewTeacherRepository creates a new teacher repository
func NewTeacherRepository(sess *orm.Session) *TeacherRepository {
	return &TeacherRepository{Managed: NewManaged[*models.Teacher, int64](sess)}
}

func teachers() *query.Criteria { return query.From(models.EntityTeacher) }

// FindWithCourses returns one teacher with courses loaded
func (r *TeacherRepository) FindWithCourses(ctx context.Context, id int64) (*models.Teacher, bool, error) {
	return r.byID(ctx, "find teacher with courses", id, FetchCourses)
}

// FindWithCoursesAndStudents returns one teacher with courses and their
// students loaded
func (r *TeacherRepository) FindWithCoursesAndStudents(ctx context.Context, id int64) (*models.Teacher, bool, error) {
	return r.byID(ctx, "find teacher with courses and students", id, FetchCourseStudents)
}

// FindByFilters returns teachers whose name contains name and who teach a
// course whose title contains courseTitle; nil filters are ignored
func (r *TeacherRepository) FindByFilters(ctx context.Context, name, courseTitle *string) ([]*models.Teacher, error) {
	return r.list(ctx, "find teachers by filters",
		teachers().Where(query.Contains("name", name), query.Contains("courses.title", courseTitle)).
			OrderBy("name", query.Asc))
}

// FindTeachersWithoutCourses returns teachers with no course at all
func (r *TeacherRepository) FindTeachersWithoutCourses(ctx context.Context) ([]*models.Teacher, error) {
	return r.list(ctx, "find teachers without courses",
		teachers().Where(query.NotExists(query.Sub(models.EntityCourse).Correlate("teacher.id", "id"))))
}

// FindTeachingStudent returns the teachers of any course the student takes
func (r *TeacherRepository) FindTeachingStudent(ctx context.Context, studentID int64) ([]*models.Teacher, error) {
	return r.list(ctx, "find teachers of student",
		teachers().Where(query.In("id",
			query.Sub(models.EntityCourse).Select("teacher.id").Where(query.Eq("students.id", studentID)))).
			OrderBy("name", query.Asc))
}

// LoadCourses fills the courses of the given teachers with one query
func (r *TeacherRepository) LoadCourses(ctx context.Context, list ...*models.Teacher) error {
	return r.load(ctx, "load teacher courses", list, FetchCourses)
}
