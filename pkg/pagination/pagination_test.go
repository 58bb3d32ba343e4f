package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Params{Skip: 0, Limit: 10}, Normalize(-5, 0))
	assert.Equal(t, Params{Skip: 20, Limit: 100}, Normalize(20, 500))
	assert.Equal(t, Params{Skip: 3, Limit: 1}, Normalize(3, 1))
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/invoices?skip=30&limit=15", nil)
	assert.Equal(t, Params{Skip: 30, Limit: 15}, Parse(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/invoices?limit=abc", nil)
	assert.Equal(t, Params{Skip: 0, Limit: 10}, Parse(c))
}
