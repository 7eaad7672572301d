package service

import (
	"context"
	"strings"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RiskScorer rates how likely a wallet is a Sybil account. Scores are
// in [0, 1]; anything at or above the configured threshold is rejected
// at login.
type RiskScorer interface {
	Score(ctx context.Context, walletAddress, ip string) (float64, error)
}

// DenylistChecker is the slice of the profile repository the scorer needs
type DenylistChecker interface {
	IsDenylisted(ctx context.Context, wallet string) (bool, error)
}

// HeuristicRiskScorer combines address shape checks, a denylist and
// per-IP signup velocity. Deterministic for a given input.
type HeuristicRiskScorer struct {
	denylist         DenylistChecker
	redis            *redis.Client
	signupsPerIPHour int
}

func NewHeuristicRiskScorer(denylist DenylistChecker, rdb *redis.Client, signupsPerIPHour int) *HeuristicRiskScorer {
	return &HeuristicRiskScorer{
		denylist:         denylist,
		redis:            rdb,
		signupsPerIPHour: signupsPerIPHour,
	}
}

// Score rates the wallet. Redis being down degrades to the remaining
// signals rather than blocking logins.
func (s *HeuristicRiskScorer) Score(ctx context.Context, walletAddress, ip string) (float64, error) {
	if !chain.ValidateAddress(walletAddress) {
		return 1.0, nil
	}

	denied, err := s.denylist.IsDenylisted(ctx, walletAddress)
	if err != nil {
		return 0, err
	}
	if denied {
		return 1.0, nil
	}

	score := 0.0

	if vanityAddress(walletAddress) {
		score += 0.4
	}

	if s.redis != nil && ip != "" {
		count, err := s.bumpSignupCount(ctx, ip)
		if err != nil {
			logger.Warn("signup velocity check unavailable", "error", err)
		} else if s.signupsPerIPHour > 0 && count > int64(s.signupsPerIPHour) {
			score += 0.6
		}
	}

	return score, nil
}

func (s *HeuristicRiskScorer) bumpSignupCount(ctx context.Context, ip string) (int64, error) {
	key := "risk:signup:" + ip

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		s.redis.Expire(ctx, key, time.Hour)
	}
	return count, nil
}

// vanityAddress flags addresses with long repeated runs, a cheap tell
// for batch-generated wallets
func vanityAddress(address string) bool {
	hexPart := strings.ToLower(strings.TrimPrefix(address, "0x"))

	run := 1
	for i := 1; i < len(hexPart); i++ {
		if hexPart[i] == hexPart[i-1] {
			run++
			if run >= 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
