package domain

import "time"

// SecurityLevel reflects how much identity verification a wallet has passed
type SecurityLevel string

const (
	SecurityLevelNone          SecurityLevel = "none"
	SecurityLevelCaptchaPassed SecurityLevel = "captcha_passed"
	SecurityLevelGitcoinPassed SecurityLevel = "gitcoin_passed"
	SecurityLevelLevel1NFT     SecurityLevel = "level_1_nft"
)

var securityLevelRank = map[SecurityLevel]int{
	SecurityLevelNone:          0,
	SecurityLevelCaptchaPassed: 1,
	SecurityLevelGitcoinPassed: 2,
	SecurityLevelLevel1NFT:     3,
}

// AtLeast reports whether l meets or exceeds the given level
func (l SecurityLevel) AtLeast(min SecurityLevel) bool {
	return securityLevelRank[l] >= securityLevelRank[min]
}

// Valid reports whether l is a known level
func (l SecurityLevel) Valid() bool {
	_, ok := securityLevelRank[l]
	return ok
}

// UserProfile is a wallet-keyed account record
type UserProfile struct {
	WalletAddress string        `db:"wallet_address" json:"wallet_address"`
	ChainID       int           `db:"chain_id" json:"chain_id"`
	SecurityLevel SecurityLevel `db:"security_level" json:"security_level"`
	Points        int64         `db:"points" json:"points"`
	PublicKey     string        `db:"public_key" json:"-"`
	Flagged       bool          `db:"flagged" json:"flagged"`
	LastActive    time.Time     `db:"last_active" json:"last_active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
