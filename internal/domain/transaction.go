package domain

import "time"

// Point transaction types
const (
	TxTypeScoreReward = "score_reward"
	TxTypeClaimDebit  = "claim_debit"
	TxTypeClaimRefund = "claim_refund"
	TxTypeAdminAdjust = "admin_adjust"
)

// PointTransaction is one row of the append-only point ledger
type PointTransaction struct {
	ID            int64                  `db:"id" json:"id"`
	WalletAddress string                 `db:"wallet_address" json:"wallet_address"`
	Type          string                 `db:"type" json:"type"`
	Amount        int64                  `db:"amount" json:"amount"`
	Meta          map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}
