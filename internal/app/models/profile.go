package models

import "github.com/yigit/campusdata/internal/orm"

// Profile holds contact details of one student. Its student_id column is
// the owning side of the one-to-one and is never null in the store.
type Profile struct {
	orm.Model
	Address string `json:"address"`
	Phone   string `json:"phone"`

	student   orm.Ref[*Student]
	studentID *int64
}

// NewProfile creates a transient profile; attach it with Student.SetProfile
func NewProfile(address, phone string) *Profile {
	return &Profile{Address: address, Phone: phone}
}

// EntityName implements orm.Entity
func (*Profile) EntityName() string { return EntityProfile }

// Student returns the owner of the profile
func (p *Profile) Student() (student *Student, ok bool, err error) {
	return p.student.Get("Profile.student")
}

func (p *Profile) studentKey() any {
	if p.student.Loaded() {
		s, ok, _ := p.student.Get("")
		if !ok || s.ID == 0 {
			return nil
		}
		return s.ID
	}
	if p.studentID == nil {
		return nil
	}
	return *p.studentID
}

func profileMeta() *orm.EntityMeta {
	return &orm.EntityMeta{
		Name:  EntityProfile,
		Table: "profiles",
		New:   func() orm.Entity { return &Profile{} },
		Columns: []orm.Column{
			orm.FieldColumn("address", "address", func(p *Profile) *string { return &p.Address }),
			orm.FieldColumn("phone", "phone", func(p *Profile) *string { return &p.Phone }),
			{
				Field: "studentId",
				Name:  "student_id",
				Get:   func(e orm.Entity) any { return e.(*Profile).studentKey() },
				Set: func(e orm.Entity, raw any) error {
					return orm.Assign(&e.(*Profile).studentID, raw)
				},
			},
		},
		Relations: []*orm.Relation{
			{
				Name:       "student",
				Kind:       orm.OneToOne,
				Target:     EntityStudent,
				Owner:      true,
				ForeignKey: "student_id",
				One:        orm.One(func(p *Profile) *orm.Ref[*Student] { return &p.student }),
			},
		},
	}
}
