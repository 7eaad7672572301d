package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/config"
	"forgeos_backend/internal/db"
	httpServer "forgeos_backend/internal/http"
	"forgeos_backend/internal/http/handlers"
	"forgeos_backend/internal/http/middleware"
	"forgeos_backend/internal/repository"
	"forgeos_backend/internal/service"
	"forgeos_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Repositories
	profileRepo := repository.NewProfileRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	claimRepo := repository.NewClaimRepository(dbPool)
	txRepo := repository.NewTransactionRepository(dbPool)

	// Services
	auditService := service.NewAuditService(dbPool)
	riskScorer := service.NewHeuristicRiskScorer(profileRepo, middleware.RedisClient(), cfg.SignupsPerIPHour)
	identityService := service.NewIdentityService(profileRepo, riskScorer, auditService, cfg.SybilThreshold)
	sessionService := service.NewSessionService(sessionRepo, profileRepo, auditService, cfg.SessionTTL)
	scoreService := service.NewScoreService(dbPool, sessionRepo, profileRepo, txRepo, auditService, cfg.MinCompletionMs)

	hub := ws.NewHub()
	settler := chain.NewClient(cfg.SettlementURL, cfg.SettlementAPIKey)
	claimService := service.NewClaimService(dbPool, claimRepo, profileRepo, txRepo, auditService, settler, hub,
		service.ClaimConfig{
			MinClaimPoints: cfg.MinClaimPoints,
			FeePoints:      cfg.ClaimFeePoints,
			DailyCap:       cfg.MaxClaimPerDay,
			ChainID:        cfg.SupportedChainID,
			Retries:        cfg.SettlementRetries,
		})

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go claimService.Run(workerCtx)
	go sessionService.RunJanitor(workerCtx, time.Minute)

	h := handlers.NewHandler(dbPool, identityService, sessionService, scoreService, claimService, hub)
	healthHandler := handlers.NewHealthHandler(dbPool, version())

	httpServer.RegisterRoutes(r, h, healthHandler, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Println("server started on port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown:", err)
	}

	log.Println("server exited")
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
