package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/pkg/validation"
	"github.com/yigit/campusdata/internal/app/models/dto"
)

var validate = validation.New()

// BindJSON decodes the request body into obj and validates it. On failure
// the 400 response is written and false is returned.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format")
		errorDetail = errorDetail.WithDetails(err.Error())
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return Validate(c, obj)
}

// BindQuery decodes query parameters into obj and validates it
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameters")
		errorDetail = errorDetail.WithDetails(err.Error())
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return Validate(c, obj)
}

// Validate runs the struct validation rules of obj
func Validate(c *gin.Context, obj interface{}) bool {
	if err := validate.Struct(obj); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
