package handlers

import (
	"forgeos_backend/internal/service"
	"forgeos_backend/internal/ws"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB       *pgxpool.Pool
	Identity *service.IdentityService
	Sessions *service.SessionService
	Scores   *service.ScoreService
	Claims   *service.ClaimService
	Hub      *ws.Hub
}

func NewHandler(db *pgxpool.Pool, identity *service.IdentityService, sessions *service.SessionService,
	scores *service.ScoreService, claims *service.ClaimService, hub *ws.Hub) *Handler {
	return &Handler{
		DB:       db,
		Identity: identity,
		Sessions: sessions,
		Scores:   scores,
		Claims:   claims,
		Hub:      hub,
	}
}

// getWallet extracts the authenticated wallet from the gin context
func getWallet(c interface{ Get(string) (any, bool) }) (string, bool) {
	val, ok := c.Get("wallet")
	if !ok {
		return "", false
	}
	wallet, ok := val.(string)
	return wallet, ok && wallet != ""
}
