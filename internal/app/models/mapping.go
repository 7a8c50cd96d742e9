package models

import "github.com/yigit/campusdata/internal/orm"

// Entity names used by the registry and by query paths
const (
	EntityStudent = "Student"
	EntityCourse  = "Course"
	EntityTeacher = "Teacher"
	EntityProfile = "Profile"
)

// Named native queries
const (
	QueryCoursesWithStudentCount = "Course.findAllWithStudentCount"
	QueryCoursesWithMinStudents  = "Course.findCoursesWithMinStudents"
	QueryStudentsByName          = "Student.findByName"
	QueryStudentsCountByAge      = "Student.countByAge"
)

// MappingOption adjusts the registry built by NewRegistry
type MappingOption func(*mappingOptions)

type mappingOptions struct {
	teacherCascade orm.Cascade
	orphanRemoval  bool
}

// WithoutCourseRemoval maps Teacher.courses without remove cascade or
// orphan removal: deleting a teacher, or dropping a course from one, clears
// the course's teacher_id instead of deleting the course.
func WithoutCourseRemoval() MappingOption {
	return func(o *mappingOptions) {
		o.teacherCascade = orm.CascadePersist | orm.CascadeMerge
		o.orphanRemoval = false
	}
}

// NewRegistry maps the campus entities and their named queries
func NewRegistry(opts ...MappingOption) (*orm.Registry, error) {
	o := mappingOptions{teacherCascade: orm.CascadeAll, orphanRemoval: true}
	for _, opt := range opts {
		opt(&o)
	}

	reg := orm.NewRegistry().
		Register(studentMeta()).
		Register(courseMeta()).
		Register(teacherMeta(o.teacherCascade, o.orphanRemoval)).
		Register(profileMeta())

	reg.Named(QueryCoursesWithStudentCount, `
		SELECT c.id, c.title, COUNT(sc.student_id) AS student_count
		FROM courses c
		LEFT JOIN student_course sc ON sc.course_id = c.id
		GROUP BY c.id, c.title
		ORDER BY c.id`)
	reg.Named(QueryCoursesWithMinStudents, `
		SELECT c.id, c.title, COUNT(sc.student_id) AS student_count
		FROM courses c
		LEFT JOIN student_course sc ON sc.course_id = c.id
		GROUP BY c.id, c.title
		HAVING COUNT(sc.student_id) >= ?
		ORDER BY c.id`)
	reg.Named(QueryStudentsByName, `
		SELECT id, version, name, age, street, city, zip_code
		FROM students
		WHERE name = ?
		ORDER BY id`)
	reg.Named(QueryStudentsCountByAge, `
		SELECT age, COUNT(*) AS students
		FROM students
		GROUP BY age
		ORDER BY age`)

	if err := reg.Build(); err != nil {
		return nil, err
	}
	return reg, nil
}
