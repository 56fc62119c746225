package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func adminStatus(adminKey, header string) int {
	r := gin.New()
	r.Use(AdminAuth(adminKey))
	r.POST("/api/ai/disable", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/ai/disable", nil)
	if header != "" {
		req.Header.Set(AdminKeyHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	assert.Equal(t, http.StatusServiceUnavailable, adminStatus("", "anything"))
	assert.Equal(t, http.StatusUnauthorized, adminStatus("secret", ""))
	assert.Equal(t, http.StatusUnauthorized, adminStatus("secret", "wrong"))
	assert.Equal(t, http.StatusOK, adminStatus("secret", "secret"))
}

func TestOriginAllowed(t *testing.T) {
	open := OriginAllowed(nil)
	assert.True(t, open("http://evil.example"))

	strict := OriginAllowed([]string{"http://localhost:3000"})
	assert.True(t, strict("http://localhost:3000"))
	assert.True(t, strict(""), "non-browser clients send no origin")
	assert.False(t, strict("http://evil.example"))
}
