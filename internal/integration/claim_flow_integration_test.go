package integration

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/repository"
	"forgeos_backend/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// fakeSettler drives the settlement worker without a network
type fakeSettler struct {
	submitErr error
	txStatus  string
	submitted atomic.Int64
}

func (f *fakeSettler) SubmitPayout(_ context.Context, _ chain.PayoutRequest) (*chain.PayoutReceipt, error) {
	f.submitted.Add(1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &chain.PayoutReceipt{TxHash: "0xfeed"}, nil
}

func (f *fakeSettler) WaitForTransaction(_ context.Context, hash string, _ time.Duration) (*chain.TxStatus, error) {
	return &chain.TxStatus{Hash: hash, Status: f.txStatus, Confirmations: 2}, nil
}

func claimServiceFor(db *pgxpool.Pool, settler service.Settler) *service.ClaimService {
	return service.NewClaimService(db,
		repository.NewClaimRepository(db),
		repository.NewProfileRepository(db),
		repository.NewTransactionRepository(db),
		service.NewAuditService(db),
		settler,
		nil,
		service.ClaimConfig{
			MinClaimPoints: 100,
			DailyCap:       10000,
			ChainID:        137,
			Retries:        2,
			Backoff:        10 * time.Millisecond,
			SettleTimeout:  time.Second,
		})
}

func signClaim(priv ed25519.PrivateKey, wallet string, amount int64, strategy domain.GasStrategy) string {
	msg := chain.ClaimMessage(wallet, amount, string(strategy))
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, msg))
}

func TestClaimFlow_ReserveAndSettle(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 500)
	settler := &fakeSettler{txStatus: chain.TxStatusSuccess}
	claims := claimServiceFor(db, settler)

	sig := signClaim(priv, wallet, 200, domain.GasStrategyDeductRewards)
	claim, err := claims.Request(ctx, wallet, 200, domain.GasStrategyDeductRewards, sig)
	if err != nil {
		t.Fatalf("request claim: %v", err)
	}
	if claim.Payout != 195 || claim.FeePoints != 5 {
		t.Fatalf("payout = %d fee = %d, want 195 and 5", claim.Payout, claim.FeePoints)
	}

	profileRepo := repository.NewProfileRepository(db)
	balance, err := profileRepo.GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 300 {
		t.Fatalf("balance after reservation = %d, want 300", balance)
	}

	// the worker picks the claim up from the table on start
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go claims.Run(workerCtx)

	claimRepo := repository.NewClaimRepository(db)
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := claimRepo.GetByID(ctx, claim.ID)
		if err != nil {
			t.Fatalf("get claim: %v", err)
		}
		if got.Status == domain.ClaimStatusConfirmed {
			if got.TxHash != "0xfeed" {
				t.Fatalf("tx hash = %q", got.TxHash)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("claim not confirmed in time, status = %s", got.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestClaimFlow_PermanentFailureRefunds(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 500)
	settler := &fakeSettler{submitErr: &chain.APIError{StatusCode: 422, Body: "blocked"}}
	claims := claimServiceFor(db, settler)

	sig := signClaim(priv, wallet, 200, domain.GasStrategyNative)
	claim, err := claims.Request(ctx, wallet, 200, domain.GasStrategyNative, sig)
	if err != nil {
		t.Fatalf("request claim: %v", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go claims.Run(workerCtx)

	profileRepo := repository.NewProfileRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := claimRepo.GetByID(ctx, claim.ID)
		if err != nil {
			t.Fatalf("get claim: %v", err)
		}
		if got.Status == domain.ClaimStatusFailed {
			balance, err := profileRepo.GetBalance(ctx, wallet)
			if err != nil {
				t.Fatalf("get balance: %v", err)
			}
			if balance != 500 {
				t.Fatalf("balance after refund = %d, want 500", balance)
			}
			if settler.submitted.Load() != 1 {
				t.Fatalf("permanent rejection retried %d times", settler.submitted.Load())
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("claim not failed in time, status = %s", got.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestClaimFlow_Guards(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 150)
	claims := claimServiceFor(db, &fakeSettler{txStatus: chain.TxStatusPending})

	// below threshold
	sig := signClaim(priv, wallet, 50, domain.GasStrategyNative)
	if _, err := claims.Request(ctx, wallet, 50, domain.GasStrategyNative, sig); !errors.Is(err, service.ErrBelowThreshold) {
		t.Fatalf("expected ErrBelowThreshold, got %v", err)
	}

	// more than the balance
	sig = signClaim(priv, wallet, 400, domain.GasStrategyNative)
	if _, err := claims.Request(ctx, wallet, 400, domain.GasStrategyNative, sig); !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// signature over different parameters
	sig = signClaim(priv, wallet, 999, domain.GasStrategyNative)
	if _, err := claims.Request(ctx, wallet, 100, domain.GasStrategyNative, sig); !errors.Is(err, service.ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	// first live claim blocks a second
	sig = signClaim(priv, wallet, 100, domain.GasStrategyNative)
	if _, err := claims.Request(ctx, wallet, 100, domain.GasStrategyNative, sig); err != nil {
		t.Fatalf("request claim: %v", err)
	}
	if _, err := claims.Request(ctx, wallet, 100, domain.GasStrategyNative, sig); !errors.Is(err, service.ErrClaimPending) {
		t.Fatalf("expected ErrClaimPending, got %v", err)
	}
}

// The wallet row lock serializes concurrent requests, so only one of
// two racing claims can reserve and the wallet never holds two live
// claims at once.
func TestClaimFlow_ConcurrentRequestsSingleClaim(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 500)
	claims := claimServiceFor(db, &fakeSettler{txStatus: chain.TxStatusPending})
	sig := signClaim(priv, wallet, 200, domain.GasStrategyNative)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = claims.Request(ctx, wallet, 200, domain.GasStrategyNative, sig)
		}(i)
	}
	wg.Wait()

	var ok, blocked int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrClaimPending):
			blocked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || blocked != 1 {
		t.Fatalf("got %d accepted and %d blocked, want exactly one of each", ok, blocked)
	}

	balance, err := repository.NewProfileRepository(db).GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 300 {
		t.Fatalf("balance = %d, want a single 200 debit", balance)
	}

	live, err := repository.NewClaimRepository(db).HasLiveClaim(ctx, wallet)
	if err != nil {
		t.Fatalf("has live claim: %v", err)
	}
	if !live {
		t.Fatalf("expected exactly one live claim")
	}
}

func TestClaimFlow_CancelRefunds(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 300)
	claims := claimServiceFor(db, &fakeSettler{txStatus: chain.TxStatusPending})

	sig := signClaim(priv, wallet, 150, domain.GasStrategyNative)
	claim, err := claims.Request(ctx, wallet, 150, domain.GasStrategyNative, sig)
	if err != nil {
		t.Fatalf("request claim: %v", err)
	}

	cancelled, err := claims.Cancel(ctx, wallet, claim.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.ClaimStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	balance, err := repository.NewProfileRepository(db).GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 300 {
		t.Fatalf("balance after cancel = %d, want 300", balance)
	}

	// cancelling again finds nothing pending
	if _, err := claims.Cancel(ctx, wallet, claim.ID); !errors.Is(err, service.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestClaimFlow_FlaggedWalletHeld(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 300)
	profileRepo := repository.NewProfileRepository(db)
	if err := profileRepo.SetFlagged(ctx, wallet, true); err != nil {
		t.Fatalf("flag wallet: %v", err)
	}

	claims := claimServiceFor(db, &fakeSettler{txStatus: chain.TxStatusPending})
	sig := signClaim(priv, wallet, 150, domain.GasStrategyNative)
	if _, err := claims.Request(ctx, wallet, 150, domain.GasStrategyNative, sig); !errors.Is(err, service.ErrFlagged) {
		t.Fatalf("expected ErrFlagged, got %v", err)
	}
}
