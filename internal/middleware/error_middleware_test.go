package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/pkg/apperrors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"not found", apperrors.NewResourceNotFoundError("student 9 not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"stale version", fmt.Errorf("update: %w", &apperrors.OptimisticLockError{Entity: "Student", ID: 1, Version: 1}), http.StatusConflict, dto.ErrorCodeStaleVersion},
		{"unique", &apperrors.ConstraintError{Kind: "unique", Err: errors.New("duplicate")}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{"conflict", apperrors.NewCustomError(apperrors.ErrConstraintViolation, "already enrolled"), http.StatusConflict, dto.ErrorCodeConflict},
		{"invalid argument", apperrors.NewInvalidArgument("size", "must be positive"), http.StatusBadRequest, dto.ErrorCodeInvalidArgument},
		{"not loaded", apperrors.NewNotLoadedError("courses"), http.StatusInternalServerError, dto.ErrorCodeDatabaseError},
		{"closed session", fmt.Errorf("find students: %w", apperrors.ErrSessionClosed), http.StatusInternalServerError, dto.ErrorCodeDatabaseError},
		{"no transaction", apperrors.ErrNoActiveTransaction, http.StatusInternalServerError, dto.ErrorCodeDatabaseError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, detail.Code)
		})
	}
}

func TestClassifyKeepsMessages(t *testing.T) {
	_, detail := classify(apperrors.NewResourceNotFoundError("course 7 not found"))
	assert.Equal(t, "course 7 not found", detail.Message)

	_, detail = classify(apperrors.NewInvalidArgument("direction", "must be asc or desc"))
	assert.Equal(t, "direction", detail.Field)

	_, detail = classify(apperrors.NewCustomError(apperrors.ErrConstraintViolation, "already enrolled").WithCode("ALREADY_ENROLLED"))
	assert.Equal(t, "already enrolled", detail.Message)
	assert.Equal(t, map[string]interface{}{"reason": "ALREADY_ENROLLED"}, detail.Details)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestHandleAPIErrorMarksServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)

	HandleAPIError(c, errors.New("connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"severity":"CRITICAL"`)
	assert.NotContains(t, w.Body.String(), "connection reset")
}
