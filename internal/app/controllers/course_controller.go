package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/services"
	"github.com/yigit/campusdata/internal/middleware"
	"github.com/yigit/campusdata/internal/pkg/helpers"
)

// CourseController handles course-related endpoints
type CourseController struct {
	courseService services.CourseService
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

// GetCourses lists all courses
// @Summary List courses
// @Tags courses
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CourseResponse}
// @Router /courses [get]
func (c *CourseController) GetCourses(ctx *gin.Context) {
	courses, err := c.courseService.GetCourses(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewCourseResponses(courses)))
}

// GetCourse retrieves one course
// @Summary Get course by ID
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Param include query string false "Associations to load" example(students,teacher)
// @Success 200 {object} dto.APIResponse{data=dto.CourseResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	course, err := c.courseService.GetCourse(ctx, id, helpers.ParseInclude(ctx.Query("include")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewCourseResponse(course)))
}

// GetStats reports enrollment counts per course and student counts per age
// @Summary Course statistics
// @Tags courses
// @Produce json
// @Param minStudents query int false "Only courses with at least this many students"
// @Success 200 {object} dto.APIResponse{data=dto.CourseStatsResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /courses/stats [get]
func (c *CourseController) GetStats(ctx *gin.Context) {
	var minStudents *int64
	if raw := ctx.Query("minStudents"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			badRequest(ctx, "Invalid minStudents", "minStudents must be a non-negative number")
			return
		}
		minStudents = &n
	}
	stats, err := c.courseService.GetStats(ctx, minStudents)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(stats))
}
