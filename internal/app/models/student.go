package models

import "github.com/yigit/campusdata/internal/orm"

// Address is embedded in the students table as nullable columns
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
}

// Student defines the student model based on the 'students' table
type Student struct {
	orm.Model
	Name    string   `json:"name"`
	Age     int      `json:"age"`
	Address *Address `json:"address,omitempty"`

	// Relations (populated when fetched)
	courses orm.Collection[*Course]
	profile orm.Ref[*Profile]
	phones  orm.ValueSet[string]
}

// NewStudent creates a transient student
func NewStudent(name string, age int) *Student {
	return &Student{Name: name, Age: age}
}

// EntityName implements orm.Entity
func (*Student) EntityName() string { return EntityStudent }

// Courses returns the enrolled courses
func (s *Student) Courses() ([]*Course, error) { return s.courses.All("Student.courses") }

// CoursesLoaded reports whether Courses can be read
func (s *Student) CoursesLoaded() bool { return s.courses.Loaded() }

// Profile returns the student's profile; ok is false when the student has none
func (s *Student) Profile() (profile *Profile, ok bool, err error) {
	return s.profile.Get("Student.profile")
}

// Phones returns the phone numbers of the student
func (s *Student) Phones() ([]string, error) { return s.phones.All("Student.phones") }

// AddCourse enrolls the student and keeps Course.students in step
func (s *Student) AddCourse(c *Course) {
	if c == nil {
		return
	}
	s.courses.Add(c)
	c.students.Add(s)
}

// RemoveCourse drops the enrollment on both sides
func (s *Student) RemoveCourse(c *Course) {
	if c == nil {
		return
	}
	s.courses.Remove(c)
	c.students.Remove(s)
}

// SetProfile replaces the profile. The replaced profile loses its student
// and is deleted on the next merge.
func (s *Student) SetProfile(p *Profile) {
	if old, ok, err := s.profile.Get(""); err == nil && ok && old != p {
		old.student.Set(nil)
	}
	s.profile.Set(p)
	if p != nil {
		p.student.Set(s)
	}
}

// AddPhone records a phone number; duplicates are ignored
func (s *Student) AddPhone(phone string) bool { return s.phones.Add(phone) }

// RemovePhone drops a phone number
func (s *Student) RemovePhone(phone string) bool { return s.phones.Remove(phone) }

func addressColumn(field, column string, ref func(*Address) *string) orm.Column {
	return orm.Column{
		Field: field,
		Name:  column,
		Get: func(e orm.Entity) any {
			a := e.(*Student).Address
			if a == nil {
				return nil
			}
			return *ref(a)
		},
		Set: func(e orm.Entity, raw any) error {
			if raw == nil {
				return nil
			}
			s := e.(*Student)
			if s.Address == nil {
				s.Address = &Address{}
			}
			return orm.Assign(ref(s.Address), raw)
		},
	}
}

func studentMeta() *orm.EntityMeta {
	return &orm.EntityMeta{
		Name:  EntityStudent,
		Table: "students",
		New:   func() orm.Entity { return &Student{} },
		Columns: []orm.Column{
			orm.FieldColumn("name", "name", func(s *Student) *string { return &s.Name }),
			orm.FieldColumn("age", "age", func(s *Student) *int { return &s.Age }),
			addressColumn("address.street", "street", func(a *Address) *string { return &a.Street }),
			addressColumn("address.city", "city", func(a *Address) *string { return &a.City }),
			addressColumn("address.zipCode", "zip_code", func(a *Address) *string { return &a.ZipCode }),
		},
		Relations: []*orm.Relation{
			{
				Name:              "courses",
				Kind:              orm.ManyToMany,
				Target:            EntityCourse,
				Owner:             true,
				JoinTable:         "student_course",
				JoinColumn:        "student_id",
				InverseJoinColumn: "course_id",
				Cascade:           orm.CascadePersist | orm.CascadeMerge,
				Many:              orm.Many(func(s *Student) *orm.Collection[*Course] { return &s.courses }),
			},
			{
				Name:          "profile",
				Kind:          orm.OneToOne,
				Target:        EntityProfile,
				MappedBy:      "student",
				Cascade:       orm.CascadeAll,
				OrphanRemoval: true,
				One:           orm.One(func(s *Student) *orm.Ref[*Profile] { return &s.profile }),
			},
			{
				Name:        "phones",
				Kind:        orm.ElementCollection,
				JoinTable:   "student_phones",
				JoinColumn:  "student_id",
				ValueColumn: "phone",
				Values:      orm.Values(func(s *Student) *orm.ValueSet[string] { return &s.phones }),
			},
		},
	}
}
