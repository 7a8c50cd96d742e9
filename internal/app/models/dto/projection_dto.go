package dto

// CourseWithCount is a course title with its enrollment count
type CourseWithCount struct {
	ID           int64  `json:"id" example:"1"`
	Title        string `json:"title" example:"Databases"`
	StudentCount int64  `json:"studentCount" example:"12"`
}

// AgeGroup counts students of one age
type AgeGroup struct {
	Age      int   `json:"age" example:"21"`
	Students int64 `json:"students" example:"4"`
}
