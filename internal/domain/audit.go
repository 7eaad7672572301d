package domain

import "time"

// AuditLog records an important account action
type AuditLog struct {
	ID            int64                  `db:"id" json:"id"`
	WalletAddress string                 `db:"wallet_address" json:"wallet_address"`
	Action        string                 `db:"action" json:"action"`
	Category      string                 `db:"category" json:"category"`
	Details       map[string]interface{} `db:"details" json:"details"`
	IP            string                 `db:"ip" json:"ip,omitempty"`
	UserAgent     string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}

// Audit categories
const (
	AuditCategoryAuth    = "auth"
	AuditCategorySession = "session"
	AuditCategoryScore   = "score"
	AuditCategoryClaim   = "claim"
	AuditCategoryRisk    = "risk"
)

// Audit actions
const (
	AuditActionLogin         = "login"
	AuditActionLoginRejected = "login_rejected"

	AuditActionSessionStart = "session_start"

	AuditActionScoreAccepted = "score_accepted"
	AuditActionScoreRejected = "score_rejected"

	AuditActionClaimRequest   = "claim_request"
	AuditActionClaimSubmitted = "claim_submitted"
	AuditActionClaimConfirmed = "claim_confirmed"
	AuditActionClaimFailed    = "claim_failed"
	AuditActionClaimCancelled = "claim_cancelled"

	AuditActionWalletFlagged = "wallet_flagged"
)
