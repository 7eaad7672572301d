package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"forgeos_backend/internal/service"

	"github.com/gin-gonic/gin"
)

func jwtRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", JWT(), func(c *gin.Context) {
		wallet, _ := c.Get("wallet")
		c.JSON(http.StatusOK, gin.H{"wallet": wallet})
	})
	return r
}

func TestJWT_ValidToken(t *testing.T) {
	service.InitJWTWithSecret("mw-test-secret")
	token, err := service.GenerateJWT("0xabc1111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	jwtRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}
}

func TestJWT_MissingHeader(t *testing.T) {
	service.InitJWTWithSecret("mw-test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	jwtRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}

func TestJWT_MalformedHeader(t *testing.T) {
	service.InitJWTWithSecret("mw-test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	jwtRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}
