package service

import (
	"context"
	"errors"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSpeedHack      = errors.New("completion too fast")
	ErrBadSignature   = errors.New("bad signature")
	ErrInvalidScore   = errors.New("invalid score")
)

// SignatureVerifier checks a wallet signature over a message
type SignatureVerifier func(publicKeyHex string, message []byte, signature string) error

// ScoreService validates score submissions and credits rewards
type ScoreService struct {
	db              *pgxpool.Pool
	sessions        *repository.SessionRepository
	profiles        *repository.ProfileRepository
	ledger          *repository.TransactionRepository
	audit           *AuditService
	minCompletionMs int64
	verify          SignatureVerifier
}

func NewScoreService(db *pgxpool.Pool, sessions *repository.SessionRepository, profiles *repository.ProfileRepository,
	ledger *repository.TransactionRepository, audit *AuditService, minCompletionMs int64) *ScoreService {
	return &ScoreService{
		db:              db,
		sessions:        sessions,
		profiles:        profiles,
		ledger:          ledger,
		audit:           audit,
		minCompletionMs: minCompletionMs,
		verify:          chain.VerifySignature,
	}
}

// Submit runs the full anti-cheat pipeline and credits the session's
// wallet in one transaction. Any rejection rolls back with no state
// change; in particular a too-fast or badly signed submission leaves
// the session usable for a retry. A replay of a consumed session fails
// the validity check.
func (s *ScoreService) Submit(ctx context.Context, callerWallet, sessionID string, score int64, clientTimestamp int64, signature string) (newBalance int64, err error) {
	if score < 0 {
		return 0, ErrInvalidScore
	}

	defer func() {
		if err != nil {
			s.audit.LogScore(ctx, callerWallet, sessionID, score, false, err.Error())
		}
	}()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	session, err := s.sessions.LockForUpdate(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return 0, ErrInvalidSession
		}
		return 0, err
	}

	// The session, not the caller's request body, decides who gets paid
	if session.WalletAddress != callerWallet {
		return 0, ErrInvalidSession
	}

	now := time.Now()
	if !session.Live(now) {
		return 0, ErrInvalidSession
	}

	// The completion floor is judged on the client's claimed play time.
	// The timestamp is bound into the signature, so a forged value also
	// breaks the signature check below.
	if clientTimestamp-session.StartedAt.UnixMilli() < s.minCompletionMs {
		return 0, ErrSpeedHack
	}

	profile, err := s.profiles.LockForUpdate(ctx, tx, session.WalletAddress)
	if err != nil {
		return 0, err
	}

	message := chain.SubmissionMessage(session.ID, session.Nonce, score, clientTimestamp)
	if err := s.verify(profile.PublicKey, message, signature); err != nil {
		return 0, ErrBadSignature
	}

	if err := s.sessions.ConsumeWithTx(ctx, tx, session.ID); err != nil {
		return 0, err
	}

	newBalance, err = s.profiles.CreditWithTx(ctx, tx, session.WalletAddress, score)
	if err != nil {
		return 0, err
	}

	ledgerTx := &domain.PointTransaction{
		WalletAddress: session.WalletAddress,
		Type:          domain.TxTypeScoreReward,
		Amount:        score,
		Meta: map[string]interface{}{
			"session_id": session.ID,
			"quest_id":   session.QuestID,
		},
	}
	if err := s.ledger.CreateWithTx(ctx, tx, ledgerTx); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	logger.Info("score accepted", "wallet", session.WalletAddress, "session_id", session.ID, "score", score)
	s.audit.LogScore(ctx, session.WalletAddress, session.ID, score, true, "")

	return newBalance, nil
}

// History returns the wallet's point ledger
func (s *ScoreService) History(ctx context.Context, wallet string, limit int) ([]*domain.PointTransaction, error) {
	return s.ledger.GetByWallet(ctx, wallet, limit)
}
