package repositories_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/seed"
	"github.com/yigit/campusdata/internal/testutil"
)

var ctx = context.Background()

func seeded(t *testing.T, opts ...models.MappingOption) (*orm.Factory, *seed.Dataset) {
	t.Helper()
	f := testutil.NewFactory(t, opts...)
	d := seed.Build()
	require.NoError(t, d.Insert(ctx, testutil.Session(t, f)))
	return f, d
}

func repos(t *testing.T, f *orm.Factory) *repositories.Repositories {
	t.Helper()
	return repositories.NewRepositories(testutil.Session(t, f))
}

func studentNames(list []*models.Student) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func teacherNames(list []*models.Teacher) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func courseTitles(t *testing.T, list []*models.Course) []string {
	t.Helper()
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Title
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestRepositoryWritesNeedTransaction(t *testing.T) {
	f := testutil.NewFactory(t)
	sess := testutil.Session(t, f)
	repo := repositories.NewRepository[*models.Student, int64](sess)

	s := models.NewStudent("Eve", 30)
	err := repo.Create(ctx, s)
	require.ErrorIs(t, err, apperrors.ErrNoActiveTransaction)
	assert.Zero(t, s.ID)

	require.NoError(t, sess.Begin(ctx))
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Create(ctx, models.NewStudent("Finn", 31)))
	require.NoError(t, sess.Rollback(ctx))
	assert.Zero(t, s.ID, "rollback restores the generated id")

	n, err := repositories.NewStudentRepository(sess).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, sess.InTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, s); err != nil {
			return err
		}
		return repo.Create(ctx, models.NewStudent("Finn", 31))
	}))
	n, err = repositories.NewStudentRepository(sess).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestManagedCRUD(t *testing.T) {
	f := testutil.NewFactory(t)
	r := repos(t, f)

	s := models.NewStudent("Eve", 30)
	s.Address = &models.Address{Street: "Alsancak 3", City: "Izmir", ZipCode: "35220"}
	s.AddPhone("555-0900")
	require.NoError(t, r.Students.Create(ctx, s))
	require.NotZero(t, s.ID)
	assert.Equal(t, int64(1), s.Version)
	assert.False(t, r.Session.Active(), "a self-managed write commits its own transaction")

	same, ok, err := r.Students.Read(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, s, same, "reads return the attached instance")

	fresh := repos(t, f)
	loaded, ok, err := fresh.Students.Read(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Eve", loaded.Name)
	require.NotNil(t, loaded.Address)
	assert.Equal(t, "Izmir", loaded.Address.City)

	loaded.Age = 31
	loaded.Address = nil
	require.NoError(t, fresh.Students.Update(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	again, ok, err := repos(t, f).Students.Read(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 31, again.Age)
	assert.Nil(t, again.Address, "clearing the address nulls its columns")

	require.NoError(t, fresh.Students.Delete(ctx, loaded))
	_, ok, err = repos(t, f).Students.Read(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a missing row is absent, not an error")
}

func TestReadMissing(t *testing.T) {
	f, _ := seeded(t)
	got, ok, err := repos(t, f).Courses.Read(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestOptimisticLockAcrossSessions(t *testing.T) {
	f, d := seeded(t)
	first, second := repos(t, f), repos(t, f)

	a, ok, err := first.Students.Read(ctx, d.Ada.ID)
	require.NoError(t, err)
	require.True(t, ok)
	b, ok, err := second.Students.Read(ctx, d.Ada.ID)
	require.NoError(t, err)
	require.True(t, ok)

	a.Age = 21
	require.NoError(t, first.Students.Update(ctx, a))

	b.Age = 40
	err = second.Students.Update(ctx, b)
	require.ErrorIs(t, err, apperrors.ErrOptimisticLockConflict)
	var lockErr *apperrors.OptimisticLockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, models.EntityStudent, lockErr.Entity)
	assert.Equal(t, int64(1), b.Version, "the failed write leaves the stale version")

	current, _, err := repos(t, f).Students.Read(ctx, d.Ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, current.Age)
	assert.Equal(t, int64(2), current.Version)
}

func TestDeleteTeacherRemovesCourses(t *testing.T) {
	f, d := seeded(t)
	r := repos(t, f)

	grace, ok, err := r.Teachers.Read(ctx, d.Grace.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.Teachers.Delete(ctx, grace))

	check := repos(t, f)
	all, err := check.Courses.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Art History"}, courseTitles(t, all))

	ada, _, err := check.Students.FindWithCourses(ctx, d.Ada.ID)
	require.NoError(t, err)
	courses, err := ada.Courses()
	require.NoError(t, err)
	assert.Empty(t, courses, "enrollments of removed courses are gone")

	n, err := check.Students.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "students survive")
}

func TestDeleteTeacherWithoutCourseRemoval(t *testing.T) {
	f, d := seeded(t, models.WithoutCourseRemoval())
	r := repos(t, f)

	grace, _, err := r.Teachers.Read(ctx, d.Grace.ID)
	require.NoError(t, err)
	require.NoError(t, r.Teachers.Delete(ctx, grace))

	check := repos(t, f)
	all, err := check.Courses.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	orphans, err := check.Courses.FindWithoutTeacher(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Mathematics", "Physics", "Art History"}, courseTitles(t, orphans))

	math, _, err := check.Courses.FindWithStudents(ctx, d.Math.ID)
	require.NoError(t, err)
	students, err := math.Students()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Ada", "Bob"}, studentNames(students))
}

func TestDropCourseFromTeacher(t *testing.T) {
	t.Run("orphan removal deletes the course", func(t *testing.T) {
		f, d := seeded(t)
		r := repos(t, f)
		grace, _, err := r.Teachers.FindWithCourses(ctx, d.Grace.ID)
		require.NoError(t, err)
		physics, _, err := r.Courses.Read(ctx, d.Physics.ID)
		require.NoError(t, err)

		grace.RemoveCourse(physics)
		require.NoError(t, r.Teachers.Update(ctx, grace))

		_, ok, err := repos(t, f).Courses.Read(ctx, d.Physics.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("without orphan removal the course loses its teacher", func(t *testing.T) {
		f, d := seeded(t, models.WithoutCourseRemoval())
		r := repos(t, f)
		grace, _, err := r.Teachers.FindWithCourses(ctx, d.Grace.ID)
		require.NoError(t, err)
		physics, _, err := r.Courses.Read(ctx, d.Physics.ID)
		require.NoError(t, err)

		grace.RemoveCourse(physics)
		require.NoError(t, r.Teachers.Update(ctx, grace))

		got, ok, err := repos(t, f).Courses.FindWithTeacher(ctx, d.Physics.ID)
		require.NoError(t, err)
		require.True(t, ok)
		_, present, err := got.Teacher()
		require.NoError(t, err)
		assert.False(t, present)
	})
}

func TestDeleteStudentCascades(t *testing.T) {
	f, d := seeded(t)
	r := repos(t, f)

	dee, _, err := r.Students.Read(ctx, d.Dee.ID)
	require.NoError(t, err)
	require.NoError(t, r.Students.Delete(ctx, dee))

	check := repos(t, f)
	_, ok, err := check.Profiles.Read(ctx, d.DeeProfile.ID)
	require.NoError(t, err)
	assert.False(t, ok, "the profile goes with its student")

	physics, _, err := check.Courses.FindWithStudents(ctx, d.Physics.ID)
	require.NoError(t, err)
	students, err := physics.Students()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, studentNames(students))
}

func TestProfileOrphanRemoval(t *testing.T) {
	f, d := seeded(t)
	r := repos(t, f)

	dee, _, err := r.Students.FindWithProfile(ctx, d.Dee.ID)
	require.NoError(t, err)
	replacement := models.NewProfile("Bornova 7, Izmir", "555-0401")
	dee.SetProfile(replacement)
	require.NoError(t, r.Students.Update(ctx, dee))
	require.NotZero(t, replacement.ID)

	check := repos(t, f)
	_, ok, err := check.Profiles.Read(ctx, d.DeeProfile.ID)
	require.NoError(t, err)
	assert.False(t, ok, "the replaced profile is removed")

	again, _, err := check.Students.FindWithProfile(ctx, d.Dee.ID)
	require.NoError(t, err)
	p, present, err := again.Profile()
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "555-0401", p.Phone)
}

func TestConstraintViolations(t *testing.T) {
	t.Run("duplicate enrollment", func(t *testing.T) {
		f, d := seeded(t)
		r := repos(t, f)
		bob, _, err := r.Students.Read(ctx, d.Bob.ID)
		require.NoError(t, err)
		math, _, err := r.Courses.Read(ctx, d.Math.ID)
		require.NoError(t, err)

		bob.AddCourse(math)
		err = r.Students.Update(ctx, bob)
		require.ErrorIs(t, err, apperrors.ErrConstraintViolation)
		var ce *apperrors.ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "unique", ce.Kind)
		assert.False(t, r.Session.Active())
	})

	t.Run("duplicate phone", func(t *testing.T) {
		f, d := seeded(t)
		r := repos(t, f)
		ada, _, err := r.Students.Read(ctx, d.Ada.ID)
		require.NoError(t, err)

		ada.AddPhone("555-0100")
		err = r.Students.Update(ctx, ada)
		require.ErrorIs(t, err, apperrors.ErrConstraintViolation)
		assert.Equal(t, int64(1), ada.Version, "the rolled back update restores the version")
	})
}

func TestEnrollAcrossSessions(t *testing.T) {
	f, d := seeded(t)
	r := repos(t, f)

	cy, _, err := r.Students.Read(ctx, d.Cy.ID)
	require.NoError(t, err)
	art, _, err := r.Courses.Read(ctx, d.Art.ID)
	require.NoError(t, err)
	cy.AddCourse(art)
	require.NoError(t, r.Students.Update(ctx, cy))

	r2 := repos(t, f)
	got, _, err := r2.Students.FindWithCourses(ctx, d.Cy.ID)
	require.NoError(t, err)
	courses, err := got.Courses()
	require.NoError(t, err)
	assert.Equal(t, []string{"Art History"}, courseTitles(t, courses))

	got.RemoveCourse(courses[0])
	require.NoError(t, r2.Students.Update(ctx, got))

	stats, err := repos(t, f).Courses.FindAllWithStudentCount(ctx)
	require.NoError(t, err)
	for _, c := range stats {
		if c.ID == d.Art.ID {
			assert.Zero(t, c.StudentCount)
		}
	}
}

func TestCourseWithUnsavedTeacherIsRejected(t *testing.T) {
	f, d := seeded(t)

	r := repos(t, f)
	course := models.NewCourse("Logic")
	course.SetTeacher(models.NewTeacher("Kurt Goedel"))
	err := r.Courses.Create(ctx, course)
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Zero(t, course.ID)

	courses, err := repos(t, f).Courses.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 3, "nothing was written")

	r2 := repos(t, f)
	art, ok, err := r2.Courses.Read(ctx, d.Art.ID)
	require.NoError(t, err)
	require.True(t, ok)
	art.SetTeacher(models.NewTeacher("Emmy Noether"))
	require.ErrorIs(t, r2.Courses.Update(ctx, art), apperrors.ErrInvalidArgument)

	reloaded, ok, err := repos(t, f).Courses.FindWithTeacher(ctx, d.Art.ID)
	require.NoError(t, err)
	require.True(t, ok)
	_, present, err := reloaded.Teacher()
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, int64(1), reloaded.Version)

	teachers, err := repos(t, f).Teachers.FindByFilters(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Turing", "Grace Hopper"}, teacherNames(teachers))
}

func TestWritesOnClosedSession(t *testing.T) {
	f, d := seeded(t)
	r := repos(t, f)
	require.NoError(t, r.Session.Close())

	assert.ErrorIs(t, r.Session.Persist(ctx, models.NewStudent("Eve", 19)), apperrors.ErrSessionClosed)
	assert.ErrorIs(t, r.Session.Merge(ctx, d.Bob), apperrors.ErrSessionClosed)
	assert.ErrorIs(t, r.Session.Remove(ctx, d.Bob), apperrors.ErrSessionClosed)
	assert.ErrorIs(t, r.Session.Merge(ctx, models.NewStudent("Eve", 19)), apperrors.ErrSessionClosed)
}
