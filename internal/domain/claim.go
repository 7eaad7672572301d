package domain

import "time"

// GasStrategy selects who pays for the payout transaction
type GasStrategy string

const (
	GasStrategyNative        GasStrategy = "NATIVE"
	GasStrategyMetaTx        GasStrategy = "META_TX"
	GasStrategyDeductRewards GasStrategy = "DEDUCT_REWARDS"
)

// Valid reports whether g is a known strategy
func (g GasStrategy) Valid() bool {
	switch g {
	case GasStrategyNative, GasStrategyMetaTx, GasStrategyDeductRewards:
		return true
	}
	return false
}

// ClaimStatus is the settlement lifecycle of a claim
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusConfirmed ClaimStatus = "confirmed"
	ClaimStatusFailed    ClaimStatus = "failed"
	ClaimStatusCancelled ClaimStatus = "cancelled"
)

// Live reports whether the claim still reserves points
func (s ClaimStatus) Live() bool {
	return s == ClaimStatusPending || s == ClaimStatusSubmitted
}

// Claim is a durable payout reservation; the point debit commits in the
// same transaction that inserts the row
type Claim struct {
	ID            int64       `db:"id" json:"id"`
	WalletAddress string      `db:"wallet_address" json:"wallet_address"`
	Amount        int64       `db:"amount" json:"amount"`
	FeePoints     int64       `db:"fee_points" json:"fee_points"`
	Payout        int64       `db:"payout" json:"payout"`
	GasStrategy   GasStrategy `db:"gas_strategy" json:"gas_strategy"`
	Status        ClaimStatus `db:"status" json:"status"`
	TxHash        string      `db:"tx_hash" json:"tx_hash,omitempty"`
	Confirmations int         `db:"confirmations" json:"confirmations"`
	Attempts      int         `db:"attempts" json:"attempts"`
	LastError     string      `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	SubmittedAt   *time.Time  `db:"submitted_at" json:"submitted_at,omitempty"`
	SettledAt     *time.Time  `db:"settled_at" json:"settled_at,omitempty"`
}

// ClaimEstimate shows what a wallet would receive for a claim
type ClaimEstimate struct {
	Amount      int64       `json:"amount"`
	GasStrategy GasStrategy `json:"gas_strategy"`
	FeePoints   int64       `json:"fee_points"`
	Payout      int64       `json:"payout"`
}
