package models

import "github.com/yigit/campusdata/internal/orm"

// Teacher owns the courses it teaches
type Teacher struct {
	orm.Model
	Name string `json:"name"`

	courses orm.Collection[*Course]
}

// NewTeacher creates a transient teacher
func NewTeacher(name string) *Teacher {
	return &Teacher{Name: name}
}

// EntityName implements orm.Entity
func (*Teacher) EntityName() string { return EntityTeacher }

// Courses returns the courses the teacher teaches
func (t *Teacher) Courses() ([]*Course, error) { return t.courses.All("Teacher.courses") }

// CoursesLoaded reports whether Courses can be read
func (t *Teacher) CoursesLoaded() bool { return t.courses.Loaded() }

// AddCourse assigns c to t, taking it away from its previous teacher
func (t *Teacher) AddCourse(c *Course) {
	if c == nil {
		return
	}
	if old, ok, err := c.teacher.Get(""); err == nil && ok && old != t {
		old.courses.Remove(c)
	}
	t.courses.Add(c)
	c.teacher.Set(t)
}

// RemoveCourse takes c away from t. With orphan removal the course is
// deleted on the next merge of t.
func (t *Teacher) RemoveCourse(c *Course) {
	if c == nil {
		return
	}
	t.courses.Remove(c)
	if !c.teacher.Loaded() || c.teacher.Is(t) {
		c.teacher.Set(nil)
	}
}

func teacherMeta(cascade orm.Cascade, orphanRemoval bool) *orm.EntityMeta {
	return &orm.EntityMeta{
		Name:  EntityTeacher,
		Table: "teachers",
		New:   func() orm.Entity { return &Teacher{} },
		Columns: []orm.Column{
			orm.FieldColumn("name", "name", func(t *Teacher) *string { return &t.Name }),
		},
		Relations: []*orm.Relation{
			{
				Name:          "courses",
				Kind:          orm.OneToMany,
				Target:        EntityCourse,
				MappedBy:      "teacher",
				Cascade:       cascade,
				OrphanRemoval: orphanRemoval,
				Many:          orm.Many(func(t *Teacher) *orm.Collection[*Course] { return &t.courses }),
			},
		},
	}
}
