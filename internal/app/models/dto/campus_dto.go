package dto

import "github.com/yigit/campusdata/internal/app/models"

// AddressRequest is an embedded student address
type AddressRequest struct {
	Street  string `json:"street" validate:"max=200" example:"Kordon 1"`
	City    string `json:"city" validate:"required,max=100" example:"Izmir"`
	ZipCode string `json:"zipCode" validate:"max=20" example:"35000"`
}

// ProfileRequest is a student profile sent with a new student
type ProfileRequest struct {
	Address string `json:"address" validate:"required,max=300" example:"Kordon 1, Izmir"`
	Phone   string `json:"phone" validate:"required,phone" example:"555-0400"`
}

// CreateStudentRequest represents the body of a student creation
type CreateStudentRequest struct {
	Name      string          `json:"name" validate:"required,personname" example:"Ada"`
	Age       int             `json:"age" validate:"min=0,max=150" example:"20"`
	Address   *AddressRequest `json:"address,omitempty" validate:"omitempty"`
	Phones    []string        `json:"phones,omitempty" validate:"omitempty,dive,required,phone"`
	Profile   *ProfileRequest `json:"profile,omitempty" validate:"omitempty"`
	CourseIDs []int64         `json:"courseIds,omitempty" validate:"omitempty,dive,min=1"`
}

// UpdateStudentRequest replaces the scalar fields of a student. Version must
// be the version last read.
type UpdateStudentRequest struct {
	Version int64           `json:"version" validate:"required,min=1" example:"1"`
	Name    string          `json:"name" validate:"required,personname" example:"Ada"`
	Age     int             `json:"age" validate:"min=0,max=150" example:"21"`
	Address *AddressRequest `json:"address,omitempty" validate:"omitempty"`
}

// StudentSearchRequest holds the query parameters of a student search
type StudentSearchRequest struct {
	Name        *string `form:"name"`
	MinAge      *int    `form:"minAge" validate:"omitempty,min=0"`
	MaxAge      *int    `form:"maxAge" validate:"omitempty,min=0"`
	CourseTitle *string `form:"courseTitle"`
	City        *string `form:"city"`
	Sort        string  `form:"sort" validate:"omitempty,oneof=id name age"`
	Direction   string  `form:"direction" validate:"omitempty,oneof=asc desc ASC DESC"`
	Include     string  `form:"include"`
}

// ProfileResponse is a student profile
type ProfileResponse struct {
	ID      int64  `json:"id" example:"1"`
	Address string `json:"address" example:"Kordon 1, Izmir"`
	Phone   string `json:"phone" example:"555-0400"`
}

// CourseSummary is a course without its associations
type CourseSummary struct {
	ID    int64  `json:"id" example:"1"`
	Title string `json:"title" example:"Mathematics"`
}

// StudentSummary is a student without its associations
type StudentSummary struct {
	ID   int64  `json:"id" example:"1"`
	Name string `json:"name" example:"Ada"`
	Age  int    `json:"age" example:"20"`
}

// TeacherSummary is a teacher without its courses
type TeacherSummary struct {
	ID   int64  `json:"id" example:"1"`
	Name string `json:"name" example:"Grace Hopper"`
}

// StudentResponse is a student with whichever associations were loaded
type StudentResponse struct {
	ID      int64            `json:"id" example:"1"`
	Version int64            `json:"version" example:"1"`
	Name    string           `json:"name" example:"Ada"`
	Age     int              `json:"age" example:"20"`
	Address *models.Address  `json:"address,omitempty"`
	Courses []CourseSummary  `json:"courses,omitempty"`
	Profile *ProfileResponse `json:"profile,omitempty"`
	Phones  []string         `json:"phones,omitempty"`
}

// CourseResponse is a course with whichever associations were loaded
type CourseResponse struct {
	ID       int64            `json:"id" example:"1"`
	Version  int64            `json:"version" example:"1"`
	Title    string           `json:"title" example:"Mathematics"`
	Teacher  *TeacherSummary  `json:"teacher,omitempty"`
	Students []StudentSummary `json:"students,omitempty"`
}

// TeacherResponse is a teacher with its courses when they were loaded
type TeacherResponse struct {
	ID      int64            `json:"id" example:"1"`
	Version int64            `json:"version" example:"1"`
	Name    string           `json:"name" example:"Grace Hopper"`
	Courses []CourseResponse `json:"courses,omitempty"`
}

// CourseStatsResponse lists enrollment counts
type CourseStatsResponse struct {
	Courses []CourseWithCount `json:"courses"`
	Ages    []AgeGroup        `json:"ages,omitempty"`
}

// NewStudentResponse converts a student; unloaded associations are left out
func NewStudentResponse(s *models.Student) StudentResponse {
	resp := StudentResponse{ID: s.ID, Version: s.Version, Name: s.Name, Age: s.Age, Address: s.Address}
	if courses, err := s.Courses(); err == nil {
		resp.Courses = make([]CourseSummary, 0, len(courses))
		for _, c := range courses {
			resp.Courses = append(resp.Courses, CourseSummary{ID: c.ID, Title: c.Title})
		}
	}
	if p, ok, err := s.Profile(); err == nil && ok {
		resp.Profile = &ProfileResponse{ID: p.ID, Address: p.Address, Phone: p.Phone}
	}
	if phones, err := s.Phones(); err == nil {
		resp.Phones = phones
	}
	return resp
}

// NewStudentResponses converts a list of students
func NewStudentResponses(list []*models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewStudentResponse(s))
	}
	return out
}

// NewCourseResponse converts a course; unloaded associations are left out
func NewCourseResponse(c *models.Course) CourseResponse {
	resp := CourseResponse{ID: c.ID, Version: c.Version, Title: c.Title}
	if t, ok, err := c.Teacher(); err == nil && ok {
		resp.Teacher = &TeacherSummary{ID: t.ID, Name: t.Name}
	}
	if students, err := c.Students(); err == nil {
		resp.Students = make([]StudentSummary, 0, len(students))
		for _, s := range students {
			resp.Students = append(resp.Students, StudentSummary{ID: s.ID, Name: s.Name, Age: s.Age})
		}
	}
	return resp
}

// NewCourseResponses converts a list of courses
func NewCourseResponses(list []*models.Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(list))
	for _, c := range list {
		out = append(out, NewCourseResponse(c))
	}
	return out
}

// NewTeacherResponse converts a teacher. The teacher is left off its own
// courses.
func NewTeacherResponse(t *models.Teacher) TeacherResponse {
	resp := TeacherResponse{ID: t.ID, Version: t.Version, Name: t.Name}
	if courses, err := t.Courses(); err == nil {
		resp.Courses = make([]CourseResponse, 0, len(courses))
		for _, c := range courses {
			cr := NewCourseResponse(c)
			cr.Teacher = nil
			resp.Courses = append(resp.Courses, cr)
		}
	}
	return resp
}

// NewTeacherResponses converts a list of teachers
func NewTeacherResponses(list []*models.Teacher) []TeacherResponse {
	out := make([]TeacherResponse, 0, len(list))
	for _, t := range list {
		out = append(out, NewTeacherResponse(t))
	}
	return out
}
