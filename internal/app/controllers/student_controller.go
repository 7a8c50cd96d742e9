package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/app/models"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/repositories"
	"github.com/yigit/campusdata/internal/app/services"
	"github.com/yigit/campusdata/internal/middleware"
	"github.com/yigit/campusdata/internal/orm/query"
	"github.com/yigit/campusdata/internal/pkg/helpers"
)

// StudentController handles student-related endpoints
type StudentController struct {
	studentService services.StudentService
	teacherService services.TeacherService
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, teacherService services.TeacherService) *StudentController {
	return &StudentController{
		studentService: studentService,
		teacherService: teacherService,
	}
}

// SearchStudents lists students page by page
// @Summary Search students
// @Tags students
// @Produce json
// @Param name query string false "Name contains"
// @Param minAge query int false "Minimum age"
// @Param maxAge query int false "Maximum age"
// @Param courseTitle query string false "Course title contains"
// @Param city query string false "City contains"
// @Param sort query string false "Sort field" Enums(id, name, age)
// @Param direction query string false "Sort direction" Enums(asc, desc)
// @Param include query string false "Associations to load" example(courses,profile,phones)
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /students [get]
func (c *StudentController) SearchStudents(ctx *gin.Context) {
	var req dto.StudentSearchRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page, size, err := helpers.ParsePaginationParams(ctx)
	if err != nil {
		badRequest(ctx, "Invalid pagination parameters", err.Error())
		return
	}
	dir, err := query.ParseDirection(req.Direction)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	result, err := c.studentService.SearchStudents(ctx, repositories.StudentSearch{
		Filter: repositories.StudentFilter{
			Name:        req.Name,
			MinAge:      req.MinAge,
			MaxAge:      req.MaxAge,
			CourseTitle: req.CourseTitle,
			City:        req.City,
		},
		Page:      page,
		Size:      size,
		SortBy:    req.Sort,
		Direction: dir,
		Include:   helpers.ParseInclude(req.Include),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.PaginatedResponse{
		Items:      dto.NewStudentResponses(result.Items),
		Pagination: helpers.NewPaginationInfo(result.Total, result.Page, result.Size),
	}))
}

// GetStudent retrieves one student
// @Summary Get student by ID
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Param include query string false "Associations to load" example(courses,profile,phones)
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	student, err := c.studentService.GetStudent(ctx, id, helpers.ParseInclude(ctx.Query("include")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// CreateStudent creates a student
// @Summary Create a student
// @Tags students
// @Accept json
// @Produce json
// @Param request body dto.CreateStudentRequest true "Student"
// @Success 201 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 409 {object} dto.ErrorResponse
// @Router /students [post]
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	student, err := c.studentService.CreateStudent(ctx, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// UpdateStudent replaces the fields of a student
// @Summary Update a student
// @Tags students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Student fields and the version last read"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Stale version"
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	student, err := c.studentService.UpdateStudent(ctx, id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewStudentResponse(student)))
}

// DeleteStudent removes a student
// @Summary Delete a student
// @Tags students
// @Param id path int true "Student ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.studentService.DeleteStudent(ctx, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Enroll adds a course to a student
// @Summary Enroll a student in a course
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Param courseId path int true "Course ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already enrolled"
// @Router /students/{id}/courses/{courseId} [post]
func (c *StudentController) Enroll(ctx *gin.Context) {
	c.enrollment(ctx, c.studentService.Enroll, "Enrollment added")
}

// Drop removes a course from a student
// @Summary Drop a course
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Param courseId path int true "Course ID"
// @Success 200 {object} dto.StructuredResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id}/courses/{courseId} [delete]
func (c *StudentController) Drop(ctx *gin.Context) {
	c.enrollment(ctx, c.studentService.Drop, "Enrollment removed")
}

func (c *StudentController) enrollment(ctx *gin.Context, change func(context.Context, int64, int64) (*models.Student, error), message string) {
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}
	student, err := change(ctx, studentID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.NewStudentResponse(student), message))
}

// GetStudentTeachers lists the teachers of a student's courses
// @Summary Teachers of a student
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TeacherResponse}
// @Router /students/{id}/teachers [get]
func (c *StudentController) GetStudentTeachers(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	teachers, err := c.teacherService.GetTeachersOfStudent(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewTeacherResponses(teachers)))
}

// pathID parses a positive int64 path parameter, writing 400 otherwise
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(ctx, "Invalid "+name, name+" must be a positive number")
		return 0, false
	}
	return id, true
}

func badRequest(ctx *gin.Context, message string, details interface{}) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message)
	errorDetail = errorDetail.WithDetails(details)
	ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}
