package repository

import (
	"context"
	"time"

	"forgeos_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClaimRepository struct {
	db *pgxpool.Pool
}

func NewClaimRepository(db *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{db: db}
}

const claimColumns = `id, wallet_address, amount, fee_points, payout, gas_strategy,
	       status, tx_hash, confirmations, attempts, last_error,
	       created_at, submitted_at, settled_at`

// CreateWithTx inserts the claim row within the transaction that debits
// the wallet, so the reservation and the debit commit together
func (r *ClaimRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, c *domain.Claim) error {
	return tx.QueryRow(ctx, `
		INSERT INTO claims (wallet_address, amount, fee_points, payout, gas_strategy, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.WalletAddress, c.Amount, c.FeePoints, c.Payout, c.GasStrategy, c.Status).Scan(&c.ID, &c.CreatedAt)
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*domain.Claim, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE id = $1
	`, id)
	return scanClaim(row)
}

// GetByWallet retrieves recent claims for a wallet
func (r *ClaimRepository) GetByWallet(ctx context.Context, wallet string, limit int) ([]domain.Claim, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetUnsettled retrieves claims the settlement worker still owes work,
// oldest first. Picked up on start so a crash loses no committed debit.
func (r *ClaimRepository) GetUnsettled(ctx context.Context) ([]domain.Claim, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE status IN ('pending', 'submitted')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClaims(rows)
}

// MarkSubmitted records the settlement tx hash and attempt count
func (r *ClaimRepository) MarkSubmitted(ctx context.Context, id int64, txHash string, attempts int) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE claims SET status = 'submitted', tx_hash = $2, attempts = $3, submitted_at = $4
		WHERE id = $1
	`, id, txHash, attempts, now)
	return err
}

// MarkConfirmed finalizes a settled claim
func (r *ClaimRepository) MarkConfirmed(ctx context.Context, id int64, confirmations int) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE claims SET status = 'confirmed', confirmations = $2, settled_at = $3
		WHERE id = $1
	`, id, confirmations, now)
	return err
}

// RecordAttempt bumps the attempt counter after a transient failure
func (r *ClaimRepository) RecordAttempt(ctx context.Context, id int64, attempts int, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE claims SET attempts = $2, last_error = $3 WHERE id = $1
	`, id, attempts, lastError)
	return err
}

// MarkFailedWithTx fails the claim within the transaction that refunds
// the reserved points
func (r *ClaimRepository) MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id int64, lastError string) error {
	now := time.Now()
	result, err := tx.Exec(ctx, `
		UPDATE claims SET status = 'failed', last_error = $2, settled_at = $3
		WHERE id = $1 AND status IN ('pending', 'submitted')
	`, id, lastError, now)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CancelWithTx cancels a still-pending claim within the refund
// transaction. Submitted claims cannot be cancelled.
func (r *ClaimRepository) CancelWithTx(ctx context.Context, tx pgx.Tx, id int64, wallet string) error {
	result, err := tx.Exec(ctx, `
		UPDATE claims SET status = 'cancelled'
		WHERE id = $1 AND wallet_address = $2 AND status = 'pending'
	`, id, wallet)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// rowQuerier is satisfied by both the pool and a transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HasLiveClaim checks whether the wallet already has a claim in flight
func (r *ClaimRepository) HasLiveClaim(ctx context.Context, wallet string) (bool, error) {
	return hasLiveClaim(ctx, r.db, wallet)
}

// HasLiveClaimWithTx runs the live-claim check inside an open
// transaction, typically under the wallet's row lock
func (r *ClaimRepository) HasLiveClaimWithTx(ctx context.Context, tx pgx.Tx, wallet string) (bool, error) {
	return hasLiveClaim(ctx, tx, wallet)
}

func hasLiveClaim(ctx context.Context, q rowQuerier, wallet string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM claims WHERE wallet_address = $1 AND status IN ('pending', 'submitted'))
	`, wallet).Scan(&exists)
	return exists, err
}

// GetTotalClaimedToday returns points claimed by the wallet today,
// excluding failed and cancelled claims
func (r *ClaimRepository) GetTotalClaimedToday(ctx context.Context, wallet string) (int64, error) {
	return totalClaimedToday(ctx, r.db, wallet)
}

// GetTotalClaimedTodayWithTx runs the daily total inside an open
// transaction
func (r *ClaimRepository) GetTotalClaimedTodayWithTx(ctx context.Context, tx pgx.Tx, wallet string) (int64, error) {
	return totalClaimedToday(ctx, tx, wallet)
}

func totalClaimedToday(ctx context.Context, q rowQuerier, wallet string) (int64, error) {
	var total int64
	today := time.Now().Truncate(24 * time.Hour)
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM claims
		WHERE wallet_address = $1 AND created_at >= $2 AND status NOT IN ('failed', 'cancelled')
	`, wallet, today).Scan(&total)
	return total, err
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var c domain.Claim
	var txHash, lastError *string

	if err := row.Scan(
		&c.ID, &c.WalletAddress, &c.Amount, &c.FeePoints, &c.Payout, &c.GasStrategy,
		&c.Status, &txHash, &c.Confirmations, &c.Attempts, &lastError,
		&c.CreatedAt, &c.SubmittedAt, &c.SettledAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if txHash != nil {
		c.TxHash = *txHash
	}
	if lastError != nil {
		c.LastError = *lastError
	}

	return &c, nil
}

func scanClaims(rows pgx.Rows) ([]domain.Claim, error) {
	var claims []domain.Claim

	for rows.Next() {
		var c domain.Claim
		var txHash, lastError *string

		if err := rows.Scan(
			&c.ID, &c.WalletAddress, &c.Amount, &c.FeePoints, &c.Payout, &c.GasStrategy,
			&c.Status, &txHash, &c.Confirmations, &c.Attempts, &lastError,
			&c.CreatedAt, &c.SubmittedAt, &c.SettledAt,
		); err != nil {
			return nil, err
		}

		if txHash != nil {
			c.TxHash = *txHash
		}
		if lastError != nil {
			c.LastError = *lastError
		}

		claims = append(claims, c)
	}

	return claims, nil
}
