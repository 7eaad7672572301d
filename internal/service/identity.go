package service

import (
	"context"
	"errors"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/repository"
)

var (
	ErrWrongNetwork   = errors.New("unsupported network")
	ErrSybilSuspected = errors.New("sybil activity suspected")
	ErrInvalidWallet  = errors.New("invalid wallet address")
	ErrInvalidPubKey  = errors.New("invalid public key")
)

// IdentityService handles wallet login and profile lookup
type IdentityService struct {
	profiles       *repository.ProfileRepository
	risk           RiskScorer
	audit          *AuditService
	sybilThreshold float64
}

func NewIdentityService(profiles *repository.ProfileRepository, risk RiskScorer, audit *AuditService, sybilThreshold float64) *IdentityService {
	return &IdentityService{
		profiles:       profiles,
		risk:           risk,
		audit:          audit,
		sybilThreshold: sybilThreshold,
	}
}

// Login authenticates a wallet and returns its profile with a session
// token. New wallets pass through the risk screen; returning wallets
// skip it so a score drift can never lock an account out.
func (s *IdentityService) Login(ctx context.Context, walletAddress string, chainID int, publicKey, ip, userAgent string) (*domain.UserProfile, string, error) {
	if !chain.IsSupportedChain(chainID) {
		return nil, "", ErrWrongNetwork
	}

	wallet, err := chain.NormalizeAddress(walletAddress)
	if err != nil {
		return nil, "", ErrInvalidWallet
	}

	if !chain.ValidatePublicKey(publicKey) {
		return nil, "", ErrInvalidPubKey
	}

	profile, err := s.profiles.GetByWallet(ctx, wallet)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, "", err
	}

	if profile == nil {
		score, err := s.risk.Score(ctx, wallet, ip)
		if err != nil {
			return nil, "", err
		}
		if score >= s.sybilThreshold {
			logger.Warn("login rejected by risk screen", "wallet", wallet, "score", score)
			s.audit.LogWithRequest(ctx, wallet, domain.AuditActionLoginRejected, domain.AuditCategoryRisk,
				ip, userAgent, map[string]interface{}{"score": score})
			return nil, "", ErrSybilSuspected
		}

		profile = &domain.UserProfile{
			WalletAddress: wallet,
			ChainID:       chainID,
			SecurityLevel: domain.SecurityLevelNone,
			Points:        0,
			PublicKey:     publicKey,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, "", err
		}
		logger.Info("wallet registered", "wallet", wallet)
	} else {
		if err := s.profiles.TouchLogin(ctx, wallet, publicKey); err != nil {
			return nil, "", err
		}
		profile.PublicKey = publicKey
	}

	token, err := GenerateJWT(wallet)
	if err != nil {
		return nil, "", err
	}

	s.audit.LogLogin(ctx, wallet, ip, userAgent)

	return profile, token, nil
}

// GetProfile returns the profile for a wallet
func (s *IdentityService) GetProfile(ctx context.Context, wallet string) (*domain.UserProfile, error) {
	return s.profiles.GetByWallet(ctx, wallet)
}
