package config

import (
	"os"
	"strconv"
	"time"

	"forgeos_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Chain / settlement
	SupportedChainID int
	SettlementURL    string
	SettlementAPIKey string

	// Session policy
	SessionTTL time.Duration

	// Scoring policy
	MinCompletionMs int64

	// Claim policy
	MinClaimPoints    int64
	ClaimFeePoints    int64
	MaxClaimPerDay    int64
	SettlementRetries int

	// Risk policy
	SybilThreshold   float64
	SignupsPerIPHour int
}

// Load reads configuration from env (.env honored when present)
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		SupportedChainID: envInt("SUPPORTED_CHAIN_ID", 137),
		SettlementURL:    os.Getenv("SETTLEMENT_URL"),
		SettlementAPIKey: os.Getenv("SETTLEMENT_API_KEY"),

		SessionTTL:      time.Duration(envInt("SESSION_TTL_SECONDS", 900)) * time.Second,
		MinCompletionMs: envInt64("MIN_COMPLETION_MS", 2000),

		MinClaimPoints:    envInt64("MIN_CLAIM_POINTS", 100),
		ClaimFeePoints:    envInt64("CLAIM_FEE_POINTS", 5),
		MaxClaimPerDay:    envInt64("MAX_CLAIM_POINTS_PER_DAY", 10000),
		SettlementRetries: envInt("SETTLEMENT_RETRIES", 5),

		SybilThreshold:   envFloat("SYBIL_THRESHOLD", 0.8),
		SignupsPerIPHour: envInt("SIGNUPS_PER_IP_HOUR", 20),
	}

	return cfg
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
