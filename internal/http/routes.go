package http

import (
	"os"
	"strconv"
	"time"

	"forgeos_backend/internal/http/handlers"
	"forgeos_backend/internal/http/middleware"
	"forgeos_backend/internal/ws"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, healthHandler *handlers.HealthHandler, hub *ws.Hub) {
	// read limits from env, with safe defaults
	apiRateLimit := envIntOr("API_RATE_LIMIT", 60)
	apiRateWindow := envDurationOr("API_RATE_WINDOW_SECONDS", time.Minute)

	authRateLimit := envIntOr("AUTH_RATE_LIMIT", 5)
	authRateWindow := envDurationOr("AUTH_RATE_WINDOW_SECONDS", time.Minute)

	submitRateLimit := envIntOr("SUBMIT_RATE_LIMIT", 30)
	submitRateWindow := envDurationOr("SUBMIT_RATE_WINDOW_SECONDS", time.Minute)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	// Auth
	v1.POST("/auth/login", middleware.RedisRateLimit(authRateLimit, authRateWindow), h.Login)

	// Profile
	v1.GET("/me", middleware.JWT(), h.Me)
	v1.GET("/me/history", middleware.JWT(), h.History)

	// Sessions
	v1.POST("/session/start", middleware.JWT(), h.StartSession)

	// Score submission (per wallet, not per IP)
	submitRL := middleware.SubmitRateLimit(submitRateLimit, submitRateWindow)
	v1.POST("/score/submit", middleware.JWT(), submitRL, h.SubmitScore)

	// Claims
	v1.POST("/claim", middleware.JWT(), h.RequestClaim)
	v1.POST("/claim/estimate", middleware.JWT(), h.EstimateClaim)
	v1.POST("/claim/cancel", middleware.JWT(), h.CancelClaim)
	v1.GET("/claims", middleware.JWT(), h.GetClaims)

	// WebSocket claim status feed
	r.GET("/ws/claims", h.ClaimFeed(hub))
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
