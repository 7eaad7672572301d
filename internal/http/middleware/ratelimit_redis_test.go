package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func testRouter(limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RedisRateLimit(limit, window), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRedisRateLimit_FailOpenWithoutRedis(t *testing.T) {
	old := redisClient
	redisClient = nil
	t.Cleanup(func() { redisClient = old })

	r := testRouter(1, time.Minute)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: code = %d, want 200 when Redis absent", i, w.Code)
		}
	}
}

func TestRedisRateLimit_BlocksOverLimit(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	old := redisClient
	InitRedisRateLimiter(addr, os.Getenv("REDIS_PASSWORD"), 0)
	t.Cleanup(func() { redisClient = old })
	if redisClient == nil {
		t.Skip("redis not reachable")
	}

	r := testRouter(2, 2*time.Second)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.9.8.7:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests || codes[3] != http.StatusTooManyRequests {
		t.Fatalf("requests over the limit should be blocked, got %v", codes)
	}
}
