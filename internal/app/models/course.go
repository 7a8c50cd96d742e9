package models

import "github.com/yigit/campusdata/internal/orm"

// Course represents a course students enroll in. It holds the single
// teacher_id foreign key of the teacher association.
type Course struct {
	orm.Model
	Title string `json:"title"`

	students  orm.Collection[*Student]
	teacher   orm.Ref[*Teacher]
	teacherID *int64
}

// NewCourse creates a transient course
func NewCourse(title string) *Course {
	return &Course{Title: title}
}

// EntityName implements orm.Entity
func (*Course) EntityName() string { return EntityCourse }

// Students returns the enrolled students
func (c *Course) Students() ([]*Student, error) { return c.students.All("Course.students") }

// Teacher returns the teacher; ok is false when the course has none
func (c *Course) Teacher() (teacher *Teacher, ok bool, err error) {
	return c.teacher.Get("Course.teacher")
}

// TeacherID returns the stored teacher key, available without loading the
// teacher
func (c *Course) TeacherID() *int64 {
	v := c.teacherKey()
	if v == nil {
		return nil
	}
	id := v.(int64)
	return &id
}

// AddStudent enrolls s; the owning side is Student.courses
func (c *Course) AddStudent(s *Student) {
	if s != nil {
		s.AddCourse(c)
	}
}

// RemoveStudent drops the enrollment of s
func (c *Course) RemoveStudent(s *Student) {
	if s != nil {
		s.RemoveCourse(c)
	}
}

// SetTeacher moves the course to t; nil leaves it without a teacher
func (c *Course) SetTeacher(t *Teacher) {
	if t != nil {
		t.AddCourse(c)
		return
	}
	if old, ok, err := c.teacher.Get(""); err == nil && ok {
		old.courses.Remove(c)
	}
	c.teacher.Set(nil)
}

func (c *Course) teacherKey() any {
	if c.teacher.Loaded() {
		t, ok, _ := c.teacher.Get("")
		if !ok || t.ID == 0 {
			return nil
		}
		return t.ID
	}
	if c.teacherID == nil {
		return nil
	}
	return *c.teacherID
}

func courseMeta() *orm.EntityMeta {
	return &orm.EntityMeta{
		Name:  EntityCourse,
		Table: "courses",
		New:   func() orm.Entity { return &Course{} },
		Columns: []orm.Column{
			orm.FieldColumn("title", "title", func(c *Course) *string { return &c.Title }),
			{
				Field: "teacherId",
				Name:  "teacher_id",
				Get:   func(e orm.Entity) any { return e.(*Course).teacherKey() },
				Set: func(e orm.Entity, raw any) error {
					return orm.Assign(&e.(*Course).teacherID, raw)
				},
			},
		},
		Relations: []*orm.Relation{
			{
				Name:     "students",
				Kind:     orm.ManyToMany,
				Target:   EntityStudent,
				MappedBy: "courses",
				Many:     orm.Many(func(c *Course) *orm.Collection[*Student] { return &c.students }),
			},
			{
				Name:       "teacher",
				Kind:       orm.ManyToOne,
				Target:     EntityTeacher,
				ForeignKey: "teacher_id",
				One:        orm.One(func(c *Course) *orm.Ref[*Teacher] { return &c.teacher }),
			},
		},
	}
}
