package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/staff"
)

func newRouter(tokens *staff.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	admin := r.Group("/admin", JWT(tokens), RequireRole(models.StaffRoles...))
	admin.GET("/ping", func(c *gin.Context) {
		role, _ := c.Get(ContextUserRole)
		c.String(http.StatusOK, role.(string))
	})
	return r
}

func TestAdminAccess(t *testing.T) {
	tokens := staff.NewJWTService("secret", 1)
	r := newRouter(tokens)

	admin, err := tokens.Generate(models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)
	user, err := tokens.Generate(models.User{ID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Token " + admin, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + user, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(staff.NewJWTService("secret", 1))

	req := httptest.NewRequest(http.MethodOptions, "/admin/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/admin/ping", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
