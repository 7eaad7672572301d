package repository

import (
	"context"
	"errors"
	"time"

	"forgeos_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, quest_id, wallet_address, nonce, started_at, expires_at, is_valid`

func scanSession(row pgx.Row) (*domain.GameSession, error) {
	var s domain.GameSession
	if err := row.Scan(
		&s.ID,
		&s.QuestID,
		&s.WalletAddress,
		&s.Nonce,
		&s.StartedAt,
		&s.ExpiresAt,
		&s.IsValid,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session; server clock supplies started_at
func (r *SessionRepository) Create(ctx context.Context, s *domain.GameSession) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO game_sessions (id, quest_id, wallet_address, nonce, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING started_at`,
		s.ID, s.QuestID, s.WalletAddress, s.Nonce, s.ExpiresAt,
	).Scan(&s.StartedAt)
}

// GetByID retrieves a session by id
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.GameSession, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id,
	)
	return scanSession(row)
}

// LockForUpdate reads the session inside tx with a row lock, so two
// concurrent submissions serialize on the same row
func (r *SessionRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.GameSession, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1 FOR UPDATE`, id,
	)
	return scanSession(row)
}

// ConsumeWithTx invalidates the session within an existing transaction
func (r *SessionRepository) ConsumeWithTx(ctx context.Context, tx pgx.Tx, id string) error {
	result, err := tx.Exec(ctx,
		`UPDATE game_sessions SET is_valid = FALSE WHERE id = $1 AND is_valid`, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InvalidateLive invalidates the wallet's still-live sessions; one
// authorization per wallet at a time
func (r *SessionRepository) InvalidateLive(ctx context.Context, wallet string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE game_sessions SET is_valid = FALSE
		 WHERE wallet_address = $1 AND is_valid`,
		wallet,
	)
	return err
}

// DeleteExpired removes sessions past their expiry, returning how many
// rows went away
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM game_sessions WHERE expires_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
