package repository

import (
	"context"
	"errors"

	"forgeos_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrProfileNotFound   = errors.New("profile not found")
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `wallet_address, chain_id, security_level, points, public_key, flagged, last_active, created_at`

func scanProfile(row pgx.Row) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := row.Scan(
		&p.WalletAddress,
		&p.ChainID,
		&p.SecurityLevel,
		&p.Points,
		&p.PublicKey,
		&p.Flagged,
		&p.LastActive,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByWallet retrieves a profile by wallet address
func (r *ProfileRepository) GetByWallet(ctx context.Context, wallet string) (*domain.UserProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM user_profiles
		 WHERE wallet_address = $1`,
		wallet,
	)
	return scanProfile(row)
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *domain.UserProfile) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO user_profiles (wallet_address, chain_id, security_level, points, public_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING last_active, created_at`,
		p.WalletAddress, p.ChainID, p.SecurityLevel, p.Points, p.PublicKey,
	).Scan(&p.LastActive, &p.CreatedAt)
}

// TouchLogin refreshes last_active and the registered public key on a
// returning wallet
func (r *ProfileRepository) TouchLogin(ctx context.Context, wallet, publicKey string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE user_profiles SET last_active = now(), public_key = $2 WHERE wallet_address = $1`,
		wallet, publicKey,
	)
	return err
}

// GetBalance returns the wallet's current point balance
func (r *ProfileRepository) GetBalance(ctx context.Context, wallet string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT points FROM user_profiles WHERE wallet_address = $1`, wallet,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProfileNotFound
	}
	return balance, err
}

// CreditWithTx adds points within an existing transaction
func (r *ProfileRepository) CreditWithTx(ctx context.Context, tx pgx.Tx, wallet string, amount int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx,
		`UPDATE user_profiles SET points = points + $1, last_active = now()
		 WHERE wallet_address = $2
		 RETURNING points`,
		amount, wallet,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProfileNotFound
	}
	return newBalance, err
}

// DebitWithTx deducts points within an existing transaction. The guard
// in the UPDATE makes overdraw impossible under concurrency.
func (r *ProfileRepository) DebitWithTx(ctx context.Context, tx pgx.Tx, wallet string, amount int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx,
		`UPDATE user_profiles SET points = points - $1
		 WHERE wallet_address = $2 AND points >= $1
		 RETURNING points`,
		amount, wallet,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM user_profiles WHERE wallet_address = $1)`, wallet,
			).Scan(&exists)
			if !exists {
				return 0, ErrProfileNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}

// LockForUpdate reads the profile inside tx with a row lock
func (r *ProfileRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, wallet string) (*domain.UserProfile, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM user_profiles
		 WHERE wallet_address = $1
		 FOR UPDATE`,
		wallet,
	)
	return scanProfile(row)
}

// SetFlagged marks or clears the payout hold on a wallet
func (r *ProfileRepository) SetFlagged(ctx context.Context, wallet string, flagged bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE user_profiles SET flagged = $2 WHERE wallet_address = $1`,
		wallet, flagged,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SetSecurityLevel updates the wallet's verification tier
func (r *ProfileRepository) SetSecurityLevel(ctx context.Context, wallet string, level domain.SecurityLevel) error {
	result, err := r.db.Exec(ctx,
		`UPDATE user_profiles SET security_level = $2 WHERE wallet_address = $1`,
		wallet, level,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// IsDenylisted checks the risk denylist
func (r *ProfileRepository) IsDenylisted(ctx context.Context, wallet string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM risk_denylist WHERE wallet_address = $1)`, wallet,
	).Scan(&exists)
	return exists, err
}

// Denylist adds a wallet to the risk denylist
func (r *ProfileRepository) Denylist(ctx context.Context, wallet, reason string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO risk_denylist (wallet_address, reason)
		 VALUES ($1, $2)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		wallet, reason,
	)
	return err
}
