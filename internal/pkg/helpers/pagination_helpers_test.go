package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/campusdata/internal/app/models/dto"
)

func TestNewPaginationInfo(t *testing.T) {
	assert.Equal(t, dto.PaginationInfo{CurrentPage: 2, TotalPages: 3, PageSize: 10, TotalItems: 25}, NewPaginationInfo(25, 2, 10))
	assert.Equal(t, dto.PaginationInfo{CurrentPage: 1, TotalPages: 1, PageSize: 10, TotalItems: 0}, NewPaginationInfo(0, 1, 10))
	assert.Equal(t, 0, NewPaginationInfo(0, 2, 10).TotalPages)
	assert.Equal(t, DefaultPageSize, NewPaginationInfo(5, 1, 0).PageSize)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parse := func(query string) (int, int, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/students?"+query, nil)
		return ParsePaginationParams(c)
	}

	page, size, err := parse("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size, err = parse("page=3&size=500")
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageSize, size)

	page, _, err = parse("page=0")
	require.NoError(t, err)
	assert.Equal(t, 0, page, "range checks are left to the query")

	_, _, err = parse("size=ten")
	assert.Error(t, err)
}

func TestParseInclude(t *testing.T) {
	assert.Nil(t, ParseInclude("  "))
	assert.Equal(t, []string{"courses", "profile"}, ParseInclude("courses, ,profile"))
}
