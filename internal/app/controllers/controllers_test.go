package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/app/controllers"
	"github.com/yigit/campusdata/internal/app/models/dto"
	"github.com/yigit/campusdata/internal/app/routes"
	"github.com/yigit/campusdata/internal/app/services"
	"github.com/yigit/campusdata/internal/seed"
	"github.com/yigit/campusdata/internal/testutil"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

type paged struct {
	Items      []dto.StudentResponse `json:"items"`
	Pagination dto.PaginationInfo    `json:"pagination"`
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := testutil.NewFactory(t)
	require.NoError(t, seed.Build().Insert(context.Background(), testutil.Session(t, f)))

	svc := services.NewServices(f)
	router := gin.New()
	routes.SetupRouter(router,
		controllers.NewStudentController(svc.Students, svc.Teachers),
		controllers.NewCourseController(svc.Courses),
		controllers.NewTeacherController(svc.Teachers),
	)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func names(list []dto.StudentResponse) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

func TestSearchStudents(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodGet, "/api/v1/students?sort=name&size=3&page=2", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[paged](t, env)
	assert.Equal(t, []string{"Dee"}, names(page.Items))
	assert.Equal(t, dto.PaginationInfo{CurrentPage: 2, TotalPages: 2, PageSize: 3, TotalItems: 4}, page.Pagination)

	code, env = do(t, router, http.MethodGet, "/api/v1/students?minAge=22&city=Izm&include=profile", nil)
	require.Equal(t, http.StatusOK, code)
	page = decode[paged](t, env)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dee", page.Items[0].Name)
	require.NotNil(t, page.Items[0].Profile)
	assert.Equal(t, "555-0400", page.Items[0].Profile.Phone)
	assert.Nil(t, page.Items[0].Courses)

	code, env = do(t, router, http.MethodGet, "/api/v1/students?include=grades", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, dto.ErrorCodeInvalidArgument, env.Error.Code)

	code, env = do(t, router, http.MethodGet, "/api/v1/students?sort=address", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)

	code, _ = do(t, router, http.MethodGet, "/api/v1/students?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetStudent(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodGet, "/api/v1/students/1?include=courses,phones", nil)
	require.Equal(t, http.StatusOK, code)
	ada := decode[dto.StudentResponse](t, env)
	assert.Equal(t, "Ada", ada.Name)
	assert.Len(t, ada.Courses, 2)
	assert.ElementsMatch(t, []string{"555-0100", "555-0101"}, ada.Phones)

	code, env = do(t, router, http.MethodGet, "/api/v1/students/99", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, env.Error.Code)

	code, _ = do(t, router, http.MethodGet, "/api/v1/students/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateAndUpdateStudent(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodPost, "/api/v1/students", map[string]interface{}{"age": 30})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)

	code, _ = do(t, router, http.MethodPost, "/api/v1/students", dto.CreateStudentRequest{Name: "Eve", Age: 19, CourseIDs: []int64{42}})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, router, http.MethodPost, "/api/v1/students", dto.CreateStudentRequest{
		Name:      "Eve",
		Age:       19,
		Phones:    []string{"555-0500"},
		CourseIDs: []int64{3},
	})
	require.Equal(t, http.StatusCreated, code)
	eve := decode[dto.StudentResponse](t, env)
	assert.Positive(t, eve.ID)
	assert.Equal(t, int64(1), eve.Version)
	require.Len(t, eve.Courses, 1)
	assert.Equal(t, "Art History", eve.Courses[0].Title)

	code, env = do(t, router, http.MethodPut, "/api/v1/students/2", dto.UpdateStudentRequest{Version: 1, Name: "Robert", Age: 23})
	require.Equal(t, http.StatusOK, code)
	bob := decode[dto.StudentResponse](t, env)
	assert.Equal(t, "Robert", bob.Name)
	assert.Equal(t, int64(2), bob.Version)

	code, env = do(t, router, http.MethodPut, "/api/v1/students/2", dto.UpdateStudentRequest{Version: 1, Name: "Bobby", Age: 23})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, dto.ErrorCodeStaleVersion, env.Error.Code)

	code, _ = do(t, router, http.MethodDelete, "/api/v1/students/2", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, router, http.MethodGet, "/api/v1/students/2", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEnrollment(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodPost, "/api/v1/students/3/courses/1", nil)
	require.Equal(t, http.StatusOK, code)
	cy := decode[dto.StudentResponse](t, env)
	require.Len(t, cy.Courses, 1)
	assert.Equal(t, "Mathematics", cy.Courses[0].Title)

	code, env = do(t, router, http.MethodPost, "/api/v1/students/3/courses/1", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, dto.ErrorCodeConflict, env.Error.Code)
	assert.Equal(t, map[string]interface{}{"reason": services.ReasonAlreadyEnrolled}, env.Error.Details)

	code, _ = do(t, router, http.MethodDelete, "/api/v1/students/3/courses/2", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, router, http.MethodDelete, "/api/v1/students/3/courses/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[dto.StudentResponse](t, env).Courses)
}

func TestCourseEndpoints(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodGet, "/api/v1/courses/1?include=students,teacher", nil)
	require.Equal(t, http.StatusOK, code)
	math := decode[dto.CourseResponse](t, env)
	assert.Len(t, math.Students, 2)
	require.NotNil(t, math.Teacher)
	assert.Equal(t, "Grace Hopper", math.Teacher.Name)

	code, env = do(t, router, http.MethodGet, "/api/v1/courses/stats?minStudents=2", nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[dto.CourseStatsResponse](t, env)
	titles := make([]string, 0, len(stats.Courses))
	for _, c := range stats.Courses {
		titles = append(titles, c.Title)
		assert.Equal(t, int64(2), c.StudentCount)
	}
	assert.ElementsMatch(t, []string{"Mathematics", "Physics"}, titles)
	assert.NotEmpty(t, stats.Ages)

	code, _ = do(t, router, http.MethodGet, "/api/v1/courses/stats?minStudents=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTeacherEndpoints(t *testing.T) {
	router := newRouter(t)

	code, env := do(t, router, http.MethodGet, "/api/v1/teachers/idle", nil)
	require.Equal(t, http.StatusOK, code)
	idle := decode[[]dto.TeacherResponse](t, env)
	require.Len(t, idle, 1)
	assert.Equal(t, "Alan Turing", idle[0].Name)

	code, env = do(t, router, http.MethodGet, "/api/v1/students/4/teachers", nil)
	require.Equal(t, http.StatusOK, code)
	teachers := decode[[]dto.TeacherResponse](t, env)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Grace Hopper", teachers[0].Name)

	code, env = do(t, router, http.MethodGet, "/api/v1/teachers?course=Phys", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]dto.TeacherResponse](t, env), 1)

	code, _ = do(t, router, http.MethodDelete, "/api/v1/teachers/1", nil)
	require.Equal(t, http.StatusNoContent, code)

	code, env = do(t, router, http.MethodGet, "/api/v1/courses", nil)
	require.Equal(t, http.StatusOK, code)
	courses := decode[[]dto.CourseResponse](t, env)
	require.Len(t, courses, 1)
	assert.Equal(t, "Art History", courses[0].Title)
}
