package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/orm/query"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// Course fetch paths
const (
	FetchStudents = "students"
	FetchTeacher  = "teacher"
)

// CourseRepository handles course queries
type CourseRepository struct {
	*Managed[*models.Course, int64]
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(sess *orm.Session) *CourseRepository {
	return &CourseRepository{Managed: NewManaged[*models.Course, int64](sess)}
}

func courses() *query.Criteria { return query.From(models.EntityCourse) }

// FindAll returns every course ordered by id
func (r *CourseRepository) FindAll(ctx context.Context) ([]*models.Course, error) {
	return r.list(ctx, "find all courses", courses())
}

// FindWithStudents returns one course with its students loaded
func (r *CourseRepository) FindWithStudents(ctx context.Context, id int64) (*models.Course, bool, error) {
	return r.byID(ctx, "find course with students", id, FetchStudents)
}

// FindWithTeacher returns one course with its teacher loaded
func (r *CourseRepository) FindWithTeacher(ctx context.Context, id int64) (*models.Course, bool, error) {
	return r.byID(ctx, "find course with teacher", id, FetchTeacher)
}

// FindWith returns one course with the requested associations
func (r *CourseRepository) FindWith(ctx context.Context, id int64, include ...string) (*models.Course, bool, error) {
	if err := checkIncludes(include, FetchStudents, FetchTeacher); err != nil {
		return nil, false, err
	}
	return r.byID(ctx, "find course", id, include...)
}

// FindWithoutTeacher returns the courses nobody teaches
func (r *CourseRepository) FindWithoutTeacher(ctx context.Context) ([]*models.Course, error) {
	return r.list(ctx, "find courses without teacher", courses().Where(query.IsNull("teacher.id")))
}

// FindAllWithStudentCount returns every course with its enrollment count,
// courses without students included with zero
func (r *CourseRepository) FindAllWithStudentCount(ctx context.Context) ([]dto.CourseWithCount, error) {
	return r.courseCounts(ctx, models.QueryCoursesWithStudentCount)
}

// FindCoursesWithMinStudents returns the courses with at least min students
func (r *CourseRepository) FindCoursesWithMinStudents(ctx context.Context, min int64) ([]dto.CourseWithCount, error) {
	return r.courseCounts(ctx, models.QueryCoursesWithMinStudents, min)
}

func (r *CourseRepository) courseCounts(ctx context.Context, name string, args ...any) ([]dto.CourseWithCount, error) {
	rows, err := r.sess.Named(ctx, name, args...)
	if err != nil {
		logger.Error().Err(err).Str("query", name).Msg("Error counting course students")
		return nil, err
	}
	defer rows.Close()

	var out []dto.CourseWithCount
	for rows.Next() {
		var c dto.CourseWithCount
		if err := rows.Scan(&c.ID, &c.Title, &c.StudentCount); err != nil {
			return nil, fmt.Errorf("error scanning course count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course counts: %w", err)
	}
	return out, nil
}

// CountStudentsPerCourse counts distinct students per course through the
// query builder. A nil having keeps every course.
func (r *CourseRepository) CountStudentsPerCourse(ctx context.Context, having *query.Having) ([]dto.CourseWithCount, error) {
	groups, err := query.CountGroupedBy(ctx, r.sess, query.Grouping{
		Root:    models.EntityCourse,
		GroupBy: []string{"id", "title"},
		Count:   FetchStudents,
		Having:  having,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Error grouping course students")
		return nil, fmt.Errorf("error counting students per course: %w", err)
	}

	out := make([]dto.CourseWithCount, 0, len(groups))
	for _, g := range groups {
		c := dto.CourseWithCount{StudentCount: g.Count}
		if err := orm.Assign(&c.ID, g.Key[0]); err != nil {
			return nil, err
		}
		if err := orm.Assign(&c.Title, g.Key[1]); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
