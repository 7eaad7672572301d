package service

import (
	"context"
	"errors"
	"time"

	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/repository"

	"github.com/google/uuid"
)

var ErrUnknownWallet = errors.New("unknown wallet")

// SessionService issues single-use quest sessions
type SessionService struct {
	sessions *repository.SessionRepository
	profiles *repository.ProfileRepository
	audit    *AuditService
	ttl      time.Duration
}

func NewSessionService(sessions *repository.SessionRepository, profiles *repository.ProfileRepository,
	audit *AuditService, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions: sessions,
		profiles: profiles,
		audit:    audit,
		ttl:      ttl,
	}
}

// Start issues a fresh session for the wallet. Any previous live
// session is invalidated first, so a wallet holds at most one
// authorization at a time.
func (s *SessionService) Start(ctx context.Context, wallet string, questID int) (*domain.GameSession, error) {
	if _, err := s.profiles.GetByWallet(ctx, wallet); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrUnknownWallet
		}
		return nil, err
	}

	if err := s.sessions.InvalidateLive(ctx, wallet); err != nil {
		return nil, err
	}

	session := &domain.GameSession{
		ID:            uuid.NewString(),
		QuestID:       questID,
		WalletAddress: wallet,
		Nonce:         uuid.NewString(),
		ExpiresAt:     time.Now().Add(s.ttl),
		IsValid:       true,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, wallet, domain.AuditActionSessionStart, domain.AuditCategorySession,
		map[string]interface{}{"session_id": session.ID, "quest_id": questID})

	return session, nil
}

// RunJanitor deletes expired sessions on a ticker until ctx is done
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessions.DeleteExpired(ctx, time.Now())
			if err != nil {
				logger.Error("session janitor sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("expired sessions removed", "count", removed)
			}
		}
	}
}
