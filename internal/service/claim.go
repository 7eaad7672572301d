package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrBelowThreshold   = errors.New("amount below claim threshold")
	ErrClaimPending     = errors.New("a claim is already in flight")
	ErrFlagged          = errors.New("wallet is held for review")
	ErrDailyCapExceeded = errors.New("daily claim cap exceeded")
	ErrInvalidStrategy  = errors.New("unknown gas strategy")
	ErrClaimNotFound    = errors.New("claim not found")
)

// Settler executes payouts against the settlement API
type Settler interface {
	SubmitPayout(ctx context.Context, payout chain.PayoutRequest) (*chain.PayoutReceipt, error)
	WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (*chain.TxStatus, error)
}

// ClaimNotifier pushes claim status transitions to connected clients
type ClaimNotifier interface {
	NotifyClaim(wallet string, claim *domain.Claim)
}

// ClaimConfig carries the claim policy knobs
type ClaimConfig struct {
	MinClaimPoints int64
	FeePoints      int64
	DailyCap       int64
	ChainID        int
	Retries        int
	Backoff        time.Duration
	SettleTimeout  time.Duration
}

// ClaimService reserves points for payout and settles them
// asynchronously
type ClaimService struct {
	db       *pgxpool.Pool
	claims   *repository.ClaimRepository
	profiles *repository.ProfileRepository
	ledger   *repository.TransactionRepository
	audit    *AuditService
	settler  Settler
	notifier ClaimNotifier
	verify   SignatureVerifier
	cfg      ClaimConfig

	queue chan int64
}

func NewClaimService(db *pgxpool.Pool, claims *repository.ClaimRepository, profiles *repository.ProfileRepository,
	ledger *repository.TransactionRepository, audit *AuditService, settler Settler, notifier ClaimNotifier,
	cfg ClaimConfig) *ClaimService {
	if cfg.FeePoints <= 0 {
		cfg.FeePoints = chain.ClaimFeePointsFixed
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 30 * time.Second
	}

	return &ClaimService{
		db:       db,
		claims:   claims,
		profiles: profiles,
		ledger:   ledger,
		audit:    audit,
		settler:  settler,
		notifier: notifier,
		verify:   chain.VerifySignature,
		cfg:      cfg,
		queue:    make(chan int64, 64),
	}
}

// Estimate previews the fee and payout for a claim
func (s *ClaimService) Estimate(amount int64, strategy domain.GasStrategy) (*domain.ClaimEstimate, error) {
	if !strategy.Valid() {
		return nil, ErrInvalidStrategy
	}
	if amount < s.cfg.MinClaimPoints {
		return nil, ErrBelowThreshold
	}

	// NATIVE and META_TX pay gas outside the points ledger
	var fee int64
	if strategy == domain.GasStrategyDeductRewards {
		fee = s.cfg.FeePoints
	}
	return &domain.ClaimEstimate{
		Amount:      amount,
		GasStrategy: strategy,
		FeePoints:   fee,
		Payout:      amount - fee,
	}, nil
}

// Request reserves points for payout. The debit and the claim row
// commit in one transaction, so a crash after commit is recoverable by
// the settlement worker and a crash before it leaves no trace. The
// wallet row lock serializes concurrent requests, so the live-claim
// and daily-cap checks read a settled view.
func (s *ClaimService) Request(ctx context.Context, wallet string, amount int64, strategy domain.GasStrategy, signature string) (*domain.Claim, error) {
	estimate, err := s.Estimate(amount, strategy)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	profile, err := s.profiles.LockForUpdate(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if profile.Flagged {
		return nil, ErrFlagged
	}

	message := chain.ClaimMessage(wallet, amount, string(strategy))
	if err := s.verify(profile.PublicKey, message, signature); err != nil {
		return nil, ErrBadSignature
	}

	live, err := s.claims.HasLiveClaimWithTx(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, ErrClaimPending
	}

	if s.cfg.DailyCap > 0 {
		claimedToday, err := s.claims.GetTotalClaimedTodayWithTx(ctx, tx, wallet)
		if err != nil {
			return nil, err
		}
		if claimedToday+amount > s.cfg.DailyCap {
			return nil, ErrDailyCapExceeded
		}
	}

	if _, err := s.profiles.DebitWithTx(ctx, tx, wallet, amount); err != nil {
		return nil, err
	}

	claim := &domain.Claim{
		WalletAddress: wallet,
		Amount:        amount,
		FeePoints:     estimate.FeePoints,
		Payout:        estimate.Payout,
		GasStrategy:   strategy,
		Status:        domain.ClaimStatusPending,
	}
	if err := s.claims.CreateWithTx(ctx, tx, claim); err != nil {
		return nil, err
	}

	ledgerTx := &domain.PointTransaction{
		WalletAddress: wallet,
		Type:          domain.TxTypeClaimDebit,
		Amount:        -amount,
		Meta:          map[string]interface{}{"gas_strategy": string(strategy)},
	}
	if err := s.ledger.CreateWithTx(ctx, tx, ledgerTx); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info("claim reserved", "wallet", wallet, "claim_id", claim.ID, "amount", amount, "strategy", strategy)
	s.audit.LogClaim(ctx, wallet, domain.AuditActionClaimRequest, claim.ID,
		map[string]interface{}{"amount": amount, "gas_strategy": string(strategy)})
	s.notify(wallet, claim)

	select {
	case s.queue <- claim.ID:
	default:
		// worker drains unsettled claims on its next sweep
	}

	return claim, nil
}

// Cancel aborts a still-pending claim and refunds the reservation
func (s *ClaimService) Cancel(ctx context.Context, wallet string, claimID int64) (*domain.Claim, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.WalletAddress != wallet {
		return nil, ErrClaimNotFound
	}

	if err := s.claims.CancelWithTx(ctx, tx, claimID, wallet); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	if err := s.refundWithTx(ctx, tx, claim, "cancelled"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	claim.Status = domain.ClaimStatusCancelled
	s.audit.LogClaim(ctx, wallet, domain.AuditActionClaimCancelled, claimID, nil)
	s.notify(wallet, claim)

	return claim, nil
}

// List returns the wallet's claim history
func (s *ClaimService) List(ctx context.Context, wallet string, limit int) ([]domain.Claim, error) {
	return s.claims.GetByWallet(ctx, wallet, limit)
}

// Run drives the settlement worker until ctx is done. Unsettled claims
// in the table are picked up first, so work committed before a restart
// is never lost.
func (s *ClaimService) Run(ctx context.Context) {
	unsettled, err := s.claims.GetUnsettled(ctx)
	if err != nil {
		logger.Error("failed to load unsettled claims", "error", err)
	}
	for i := range unsettled {
		s.settle(ctx, &unsettled[i])
	}

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			claim, err := s.claims.GetByID(ctx, id)
			if err != nil || claim == nil {
				logger.Error("failed to load claim for settlement", "claim_id", id, "error", err)
				continue
			}
			s.settle(ctx, claim)
		}
	}
}

// settle pushes one claim through submission and confirmation
func (s *ClaimService) settle(ctx context.Context, claim *domain.Claim) {
	if claim.Status == domain.ClaimStatusPending {
		if !s.submit(ctx, claim) {
			return
		}
	}
	if claim.Status == domain.ClaimStatusSubmitted {
		s.confirm(ctx, claim)
	}
}

// submit sends the payout, retrying transient failures with doubling
// backoff. Returns false when the claim left the submitted path.
func (s *ClaimService) submit(ctx context.Context, claim *domain.Claim) bool {
	payout := chain.PayoutRequest{
		ChainID:     s.cfg.ChainID,
		ToAddress:   claim.WalletAddress,
		Amount:      claim.Payout,
		GasStrategy: string(claim.GasStrategy),
		Reference:   claimReference(claim.ID),
	}

	backoff := s.cfg.Backoff
	for attempt := claim.Attempts + 1; attempt <= s.cfg.Retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.SettleTimeout)
		receipt, err := s.settler.SubmitPayout(callCtx, payout)
		cancel()

		if err == nil {
			if err := s.claims.MarkSubmitted(ctx, claim.ID, receipt.TxHash, attempt); err != nil {
				logger.Error("failed to record submission", "claim_id", claim.ID, "error", err)
				return false
			}
			claim.Status = domain.ClaimStatusSubmitted
			claim.TxHash = receipt.TxHash
			claim.Attempts = attempt
			s.audit.LogClaim(ctx, claim.WalletAddress, domain.AuditActionClaimSubmitted, claim.ID,
				map[string]interface{}{"tx_hash": receipt.TxHash, "attempts": attempt})
			s.notify(claim.WalletAddress, claim)
			return true
		}

		var apiErr *chain.APIError
		if errors.As(err, &apiErr) && apiErr.Permanent() {
			s.fail(ctx, claim, err.Error())
			return false
		}

		logger.Warn("payout submission failed, will retry", "claim_id", claim.ID, "attempt", attempt, "error", err)
		if err := s.claims.RecordAttempt(ctx, claim.ID, attempt, err.Error()); err != nil {
			logger.Error("failed to record attempt", "claim_id", claim.ID, "error", err)
		}
		claim.Attempts = attempt

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	s.fail(ctx, claim, "retries exhausted")
	return false
}

// confirm waits for the on-chain verdict. A timeout leaves the claim
// submitted; the next worker sweep resumes the wait.
func (s *ClaimService) confirm(ctx context.Context, claim *domain.Claim) {
	status, err := s.settler.WaitForTransaction(ctx, claim.TxHash, s.cfg.SettleTimeout)
	if err != nil {
		logger.Warn("confirmation wait incomplete", "claim_id", claim.ID, "tx_hash", claim.TxHash, "error", err)
		return
	}

	switch status.Status {
	case chain.TxStatusSuccess:
		if err := s.claims.MarkConfirmed(ctx, claim.ID, status.Confirmations); err != nil {
			logger.Error("failed to confirm claim", "claim_id", claim.ID, "error", err)
			return
		}
		claim.Status = domain.ClaimStatusConfirmed
		claim.Confirmations = status.Confirmations
		claimSettlements.WithLabelValues("confirmed").Inc()
		logger.Info("claim settled", "claim_id", claim.ID, "tx_hash", claim.TxHash)
		s.audit.LogClaim(ctx, claim.WalletAddress, domain.AuditActionClaimConfirmed, claim.ID,
			map[string]interface{}{"tx_hash": claim.TxHash, "confirmations": status.Confirmations})
		s.notify(claim.WalletAddress, claim)
	case chain.TxStatusDropped, chain.TxStatusFailed:
		s.fail(ctx, claim, "transaction "+status.Status)
	}
}

// fail marks the claim failed and refunds the reserved points in one
// transaction
func (s *ClaimService) fail(ctx context.Context, claim *domain.Claim, reason string) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Error("failed to open refund transaction", "claim_id", claim.ID, "error", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.claims.MarkFailedWithTx(ctx, tx, claim.ID, reason); err != nil {
		logger.Error("failed to mark claim failed", "claim_id", claim.ID, "error", err)
		return
	}

	if err := s.refundWithTx(ctx, tx, claim, reason); err != nil {
		logger.Error("failed to refund claim", "claim_id", claim.ID, "error", err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("failed to commit refund", "claim_id", claim.ID, "error", err)
		return
	}

	claim.Status = domain.ClaimStatusFailed
	claim.LastError = reason
	claimSettlements.WithLabelValues("failed").Inc()
	logger.Warn("claim failed, points refunded", "claim_id", claim.ID, "reason", reason)
	s.audit.LogClaim(ctx, claim.WalletAddress, domain.AuditActionClaimFailed, claim.ID,
		map[string]interface{}{"reason": reason})
	s.notify(claim.WalletAddress, claim)
}

func (s *ClaimService) refundWithTx(ctx context.Context, tx pgx.Tx, claim *domain.Claim, reason string) error {
	if _, err := s.profiles.CreditWithTx(ctx, tx, claim.WalletAddress, claim.Amount); err != nil {
		return err
	}

	ledgerTx := &domain.PointTransaction{
		WalletAddress: claim.WalletAddress,
		Type:          domain.TxTypeClaimRefund,
		Amount:        claim.Amount,
		Meta:          map[string]interface{}{"claim_id": claim.ID, "reason": reason},
	}
	return s.ledger.CreateWithTx(ctx, tx, ledgerTx)
}

func (s *ClaimService) notify(wallet string, claim *domain.Claim) {
	if s.notifier != nil {
		s.notifier.NotifyClaim(wallet, claim)
	}
}

func claimReference(id int64) string {
	// stable idempotency key for the settlement API
	return "claim-" + strconv.FormatInt(id, 10)
}
