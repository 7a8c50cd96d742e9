package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/services"
	"github.com/yigit/campusdata/internal/middleware"
	"github.com/yigit/campusdata/internal/pkg/helpers"
)

// TeacherController handles teacher-related endpoints
type TeacherController struct {
	teacherService services.TeacherService
}

// NewTeacherController creates a new TeacherController
func NewTeacherController(teacherService services.TeacherService) *TeacherController {
	return &TeacherController{teacherService: teacherService}
}

// GetTeachers lists teachers
// @Summary List teachers
// @Tags teachers
// @Produce json
// @Param name query string false "Name contains"
// @Param course query string false "Title of a taught course contains"
// @Success 200 {object} dto.APIResponse{data=[]dto.TeacherResponse}
// @Router /teachers [get]
func (c *TeacherController) GetTeachers(ctx *gin.Context) {
	teachers, err := c.teacherService.GetTeachers(ctx, optionalQuery(ctx, "name"), optionalQuery(ctx, "course"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewTeacherResponses(teachers)))
}

// GetIdleTeachers lists teachers without courses
// @Summary Teachers without courses
// @Tags teachers
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.TeacherResponse}
// @Router /teachers/idle [get]
func (c *TeacherController) GetIdleTeachers(ctx *gin.Context) {
	teachers, err := c.teacherService.GetIdleTeachers(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewTeacherResponses(teachers)))
}

// GetTeacher retrieves one teacher
// @Summary Get teacher by ID
// @Tags teachers
// @Produce json
// @Param id path int true "Teacher ID"
// @Param include query string false "Associations to load" example(courses,students)
// @Success 200 {object} dto.APIResponse{data=dto.TeacherResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /teachers/{id} [get]
func (c *TeacherController) GetTeacher(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	teacher, err := c.teacherService.GetTeacher(ctx, id, helpers.ParseInclude(ctx.Query("include")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewTeacherResponse(teacher)))
}

// DeleteTeacher removes a teacher
// @Summary Delete a teacher
// @Tags teachers
// @Param id path int true "Teacher ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /teachers/{id} [delete]
func (c *TeacherController) DeleteTeacher(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.teacherService.DeleteTeacher(ctx, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// optionalQuery returns nil for a missing or blank query parameter
func optionalQuery(ctx *gin.Context, key string) *string {
	v, ok := ctx.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	return &v
}
