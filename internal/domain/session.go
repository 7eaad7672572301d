package domain

import "time"

// GameSession is a single-use authorization to submit one score. The
// nonce is disclosed once in the issuance response so the wallet can
// bind it into the submission signature; it never travels back in
// cleartext.
type GameSession struct {
	ID            string    `db:"id" json:"session_id"`
	QuestID       int       `db:"quest_id" json:"quest_id"`
	WalletAddress string    `db:"wallet_address" json:"wallet_address"`
	Nonce         string    `db:"nonce" json:"nonce"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
	IsValid       bool      `db:"is_valid" json:"is_valid"`
}

// Live reports whether the session can still accept a submission
func (s *GameSession) Live(now time.Time) bool {
	return s.IsValid && now.Before(s.ExpiresAt)
}
