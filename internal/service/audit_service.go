package service

import (
	"context"

	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService handles audit logging
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, wallet, action, category string, details map[string]interface{}) {
	log := &domain.AuditLog{
		WalletAddress: wallet,
		Action:        action,
		Category:      category,
		Details:       details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "wallet", wallet)
	}
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, wallet, action, category, ip, userAgent string, details map[string]interface{}) {
	log := &domain.AuditLog{
		WalletAddress: wallet,
		Action:        action,
		Category:      category,
		Details:       details,
		IP:            ip,
		UserAgent:     userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "wallet", wallet)
	}
}

// LogLogin logs a wallet login
func (s *AuditService) LogLogin(ctx context.Context, wallet, ip, userAgent string) {
	s.LogWithRequest(ctx, wallet, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// LogScore logs a score submission verdict
func (s *AuditService) LogScore(ctx context.Context, wallet, sessionID string, score int64, accepted bool, reason string) {
	action := domain.AuditActionScoreRejected
	if accepted {
		action = domain.AuditActionScoreAccepted
	}

	s.Log(ctx, wallet, action, domain.AuditCategoryScore, map[string]interface{}{
		"session_id": sessionID,
		"score":      score,
		"reason":     reason,
	})
}

// LogClaim logs a claim lifecycle event
func (s *AuditService) LogClaim(ctx context.Context, wallet, action string, claimID int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["claim_id"] = claimID

	s.Log(ctx, wallet, action, domain.AuditCategoryClaim, details)
}

// GetWalletAuditLogs returns audit logs for a wallet
func (s *AuditService) GetWalletAuditLogs(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByWallet(ctx, wallet, limit)
}
