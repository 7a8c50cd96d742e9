package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/models/dto/enums"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
	"github.com/yigit/campusdata/internal/pkg/logger"
)

// --- Central Error Handling Middleware/Function ---

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		detail = detail.WithSeverity(enums.ErrorSeverityCritical)
		if gin.Mode() == gin.DebugMode {
			detail = detail.WithDebugInfo("%v", err)
		}
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

func classify(err error) (int, *dto.ErrorDetail) {
	var (
		custom     *apperrors.CustomError
		constraint *apperrors.ConstraintError
		lock       *apperrors.OptimisticLockError
		invalid    *apperrors.InvalidArgumentError
	)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		msg := "Resource not found"
		if errors.As(err, &custom) && custom.Message != "" {
			msg = custom.Message
		}
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, msg)
	case errors.As(err, &lock):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeStaleVersion, "Resource was modified concurrently").
			WithDetails(map[string]interface{}{"entity": lock.Entity, "id": lock.ID, "version": lock.Version})
	case errors.Is(err, apperrors.ErrOptimisticLockConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeStaleVersion, "Resource was modified concurrently")
	case errors.As(err, &constraint):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Constraint violated").
			WithDetails(map[string]interface{}{"kind": constraint.Kind, "constraint": constraint.Constraint})
	case errors.Is(err, apperrors.ErrConstraintViolation):
		detail := dto.NewErrorDetail(dto.ErrorCodeConflict, "Constraint violated")
		if errors.As(err, &custom) {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if custom.Code != "" {
				detail = detail.WithDetails(map[string]interface{}{"reason": custom.Code})
			}
		}
		return http.StatusConflict, detail
	case errors.As(err, &invalid):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidArgument, invalid.Reason).WithField(invalid.Param)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidArgument, "Invalid argument")
	case errors.Is(err, apperrors.ErrLazyAssociationUnavailable):
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Association not loaded")
	case apperrors.Is(err, apperrors.ErrSessionClosed, apperrors.ErrNoActiveTransaction, apperrors.ErrTransactionActive):
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Session state error")
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
