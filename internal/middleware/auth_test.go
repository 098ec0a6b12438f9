// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func roleRouter(role string, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded",
		func(c *gin.Context) {
			if role != "" {
				c.Set("user_role", role)
			}
			c.Next()
		},
		guard,
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

func getGuarded(r *gin.Engine) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRequired(t *testing.T) {
	assert.Equal(t, http.StatusOK, getGuarded(roleRouter("admin", AdminRequired())).Code)
	assert.Equal(t, http.StatusForbidden, getGuarded(roleRouter("affiliate", AdminRequired())).Code)
	assert.Equal(t, http.StatusForbidden, getGuarded(roleRouter("", AdminRequired())).Code)
}

func TestAffiliateRequired(t *testing.T) {
	assert.Equal(t, http.StatusOK, getGuarded(roleRouter("affiliate", AffiliateRequired())).Code)
	assert.Equal(t, http.StatusOK, getGuarded(roleRouter("admin", AffiliateRequired())).Code)
	assert.Equal(t, http.StatusForbidden, getGuarded(roleRouter("customer", AffiliateRequired())).Code)
	assert.Equal(t, http.StatusForbidden, getGuarded(roleRouter("", AffiliateRequired())).Code)
}

func TestForbiddenResponseEnvelope(t *testing.T) {
	w := getGuarded(roleRouter("customer", AdminRequired()))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}
