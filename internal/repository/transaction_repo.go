package repository

import (
	"context"
	"encoding/json"
	"time"

	"forgeos_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByWallet returns recent ledger entries for a wallet
func (r *TransactionRepository) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.PointTransaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, wallet_address, type, amount, meta, created_at
		 FROM point_transactions
		 WHERE wallet_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// CreateWithTx appends a ledger entry using an existing database transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.PointTransaction) error {
	metaJSON, err := json.Marshal(tx.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	return dbTx.QueryRow(ctx,
		`INSERT INTO point_transactions (wallet_address, type, amount, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		tx.WalletAddress, tx.Type, tx.Amount, metaJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// GetByWalletAndType returns ledger entries filtered by type
func (r *TransactionRepository) GetByWalletAndType(ctx context.Context, wallet string, txType string, limit int) ([]*domain.PointTransaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, wallet_address, type, amount, meta, created_at
		 FROM point_transactions
		 WHERE wallet_address = $1 AND type = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		wallet, txType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *TransactionRepository) scanRows(rows pgx.Rows) ([]*domain.PointTransaction, error) {
	var result []*domain.PointTransaction

	for rows.Next() {
		var (
			tx        domain.PointTransaction
			metaJSON  []byte
			createdAt time.Time
		)

		if err := rows.Scan(&tx.ID, &tx.WalletAddress, &tx.Type, &tx.Amount, &metaJSON, &createdAt); err != nil {
			return nil, err
		}

		tx.CreatedAt = createdAt
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tx.Meta)
		}

		result = append(result, &tx)
	}

	return result, nil
}
