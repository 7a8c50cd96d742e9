package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/orm/query"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// Student fetch paths
const (
	FetchCourses = "courses"
	FetchProfile = "profile"
	FetchPhones  = "phones"
)

// StudentFilter holds the optional filters of a student search. Nil fields
// do not constrain the result.
type StudentFilter struct {
	Name        *string
	MinAge      *int
	MaxAge      *int
	CourseTitle *string
	City        *string
}

func (f StudentFilter) predicates() []query.Predicate {
	return []query.Predicate{
		query.Contains("name", f.Name),
		query.GE("age", f.MinAge),
		query.LE("age", f.MaxAge),
		query.Contains("courses.title", f.CourseTitle),
		query.Contains("address.city", f.City),
	}
}

// StudentSearch is a filtered, sorted page request
type StudentSearch struct {
	Filter    StudentFilter
	Page      int
	Size      int
	SortBy    string
	Direction query.Direction
	Include   []string
}

// StudentPage is one page of a student search
type StudentPage struct {
	Items []*models.Student
	Total int64
	Page  int
	Size  int
}

// StudentRepository handles student queries
type StudentRepository struct {
	*Managed[*models.Student, int64]
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(sess *orm.Session) *StudentRepository {
	return &StudentRepository{Managed: NewManaged[*models.Student, int64](sess)}
}

func students() *query.Criteria { return query.From(models.EntityStudent) }

// FindAll returns every student ordered by id
func (r *StudentRepository) FindAll(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, "find all students", students())
}

// Count returns the number of students
func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	n, err := query.Count(ctx, r.sess, students())
	if err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return 0, fmt.Errorf("error counting students: %w", err)
	}
	return n, nil
}

// FindByName returns students with exactly this name through the named
// native query
func (r *StudentRepository) FindByName(ctx context.Context, name string) ([]*models.Student, error) {
	out, err := query.Native[*models.Student](ctx, r.sess, models.QueryStudentsByName, name)
	if err != nil {
		logger.Error().Err(err).Str("name", name).Msg("Error finding students by name")
		return nil, fmt.Errorf("error finding students by name: %w", err)
	}
	return out, nil
}

// FindByCourseTitle returns the students enrolled in a course with exactly
// this title, each once
func (r *StudentRepository) FindByCourseTitle(ctx context.Context, title string) ([]*models.Student, error) {
	return r.list(ctx, "find students by course title",
		students().Where(query.Eq("courses.title", title)).OrderBy("name", query.Asc))
}

// FindPaginated returns one page of students sorted by sortBy
func (r *StudentRepository) FindPaginated(ctx context.Context, page, size int, sortBy string, dir query.Direction) ([]*models.Student, error) {
	c := students().Page(page, size)
	if sortBy != "" {
		c = c.OrderBy(sortBy, dir)
	}
	return r.list(ctx, "find students paginated", c)
}

// FindAllPaged returns one page of students ordered by name
func (r *StudentRepository) FindAllPaged(ctx context.Context, page, size int) ([]*models.Student, error) {
	return r.FindPaginated(ctx, page, size, "name", query.Asc)
}

// FindAllWithCourses returns every student with courses loaded
func (r *StudentRepository) FindAllWithCourses(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, "find students with courses", students().Fetch(FetchCourses))
}

// FindAllWithProfileAndCourses returns every student with profile and
// courses loaded
func (r *StudentRepository) FindAllWithProfileAndCourses(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, "find students with profile and courses", students().Fetch(FetchProfile, FetchCourses))
}

// FindWithProfile returns one student with its profile loaded
func (r *StudentRepository) FindWithProfile(ctx context.Context, id int64) (*models.Student, bool, error) {
	return r.byID(ctx, "find student with profile", id, FetchProfile)
}

// FindWithCourses returns one student with its courses loaded
func (r *StudentRepository) FindWithCourses(ctx context.Context, id int64) (*models.Student, bool, error) {
	return r.byID(ctx, "find student with courses", id, FetchCourses)
}

// FindWithProfileAndCourses returns one student with profile and courses
// loaded
func (r *StudentRepository) FindWithProfileAndCourses(ctx context.Context, id int64) (*models.Student, bool, error) {
	return r.byID(ctx, "find student with profile and courses", id, FetchProfile, FetchCourses)
}

// FindWith returns one student with the requested associations. Unknown
// names are rejected.
func (r *StudentRepository) FindWith(ctx context.Context, id int64, include ...string) (*models.Student, bool, error) {
	if err := checkIncludes(include, FetchCourses, FetchProfile, FetchPhones); err != nil {
		return nil, false, err
	}
	return r.byID(ctx, "find student", id, include...)
}

// FindByAgeGreaterThan returns students strictly older than age
func (r *StudentRepository) FindByAgeGreaterThan(ctx context.Context, age int) ([]*models.Student, error) {
	return r.list(ctx, "find students by age", students().Where(query.GT("age", age)).OrderBy("age", query.Asc))
}

// FindByDynamicCriteria filters by exact name and minimum age; nil values
// are ignored
func (r *StudentRepository) FindByDynamicCriteria(ctx context.Context, name *string, minAge *int) ([]*models.Student, error) {
	return r.list(ctx, "find students by criteria",
		students().Where(query.Eq("name", name), query.GE("age", minAge)).OrderBy("name", query.Asc))
}

// FindByAgeAndCourseTitle returns students of the given age enrolled in a
// course with this title
func (r *StudentRepository) FindByAgeAndCourseTitle(ctx context.Context, age int, title string) ([]*models.Student, error) {
	return r.list(ctx, "find students by age and course title",
		students().Where(query.Eq("age", age), query.Eq("courses.title", title)).OrderBy("name", query.Asc))
}

// FindByFilters returns students matching every present filter, ordered by
// name
func (r *StudentRepository) FindByFilters(ctx context.Context, f StudentFilter) ([]*models.Student, error) {
	return r.list(ctx, "find students by filters", students().Where(f.predicates()...).OrderBy("name", query.Asc))
}

// Search returns one page of filtered students together with the total
// number of matches
func (r *StudentRepository) Search(ctx context.Context, s StudentSearch) (*StudentPage, error) {
	if err := checkIncludes(s.Include, FetchCourses, FetchProfile, FetchPhones); err != nil {
		return nil, err
	}
	c := students().Where(s.Filter.predicates()...).Page(s.Page, s.Size).Fetch(s.Include...)
	if s.SortBy != "" {
		c = c.OrderBy(s.SortBy, s.Direction)
	}
	items, err := r.list(ctx, "search students", c)
	if err != nil {
		return nil, err
	}
	total, err := query.Count(ctx, r.sess, c)
	if err != nil {
		logger.Error().Err(err).Msg("Error counting student search")
		return nil, fmt.Errorf("error counting students: %w", err)
	}
	return &StudentPage{Items: items, Total: total, Page: s.Page, Size: s.Size}, nil
}

// FindOlderThanAverage returns students older than the average age
func (r *StudentRepository) FindOlderThanAverage(ctx context.Context) ([]*models.Student, error) {
	return r.list(ctx, "find students older than average",
		students().Where(query.CompareSub("age", ">", query.Sub(models.EntityStudent).SelectAvg("age"))).
			OrderBy("age", query.Asc))
}

// CountByAge counts students per age through the named native query
func (r *StudentRepository) CountByAge(ctx context.Context) ([]dto.AgeGroup, error) {
	rows, err := r.sess.Named(ctx, models.QueryStudentsCountByAge)
	if err != nil {
		logger.Error().Err(err).Msg("Error counting students by age")
		return nil, err
	}
	defer rows.Close()

	var groups []dto.AgeGroup
	for rows.Next() {
		var g dto.AgeGroup
		if err := rows.Scan(&g.Age, &g.Students); err != nil {
			return nil, fmt.Errorf("error scanning age group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating age groups: %w", err)
	}
	return groups, nil
}

// LoadCourses fills the courses of the given students with one query
func (r *StudentRepository) LoadCourses(ctx context.Context, list ...*models.Student) error {
	return r.load(ctx, "load student courses", list, FetchCourses)
}

// LoadPhones fills the phones of the given students with one query
func (r *StudentRepository) LoadPhones(ctx context.Context, list ...*models.Student) error {
	return r.load(ctx, "load student phones", list, FetchPhones)
}

func checkIncludes(include []string, allowed ...string) error {
	for _, inc := range include {
		ok := false
		for _, a := range allowed {
			if inc == a {
				ok = true
				break
			}
		}
		if !ok {
			return apperrors.NewInvalidArgument("include", "unknown association %q, expected one of %v", inc, allowed)
		}
	}
	return nil
}
