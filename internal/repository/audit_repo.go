package repository

import (
	"context"
	"encoding/json"

	"forgeos_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO audit_logs (wallet_address, action, category, details, ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		log.WalletAddress, log.Action, log.Category, detailsJSON, log.IP, log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

// GetByWallet returns audit logs for a wallet
func (r *AuditRepository) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, wallet_address, action, category, details, COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
		 FROM audit_logs
		 WHERE wallet_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetByCategory returns recent audit logs for a category
func (r *AuditRepository) GetByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, wallet_address, action, category, details, COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
		 FROM audit_logs
		 WHERE category = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog

	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte

		if err := rows.Scan(&log.ID, &log.WalletAddress, &log.Action, &log.Category,
			&detailsJSON, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}

		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &log.Details)
		}

		logs = append(logs, &log)
	}

	return logs, nil
}
