package integration

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"forgeos_backend/internal/chain"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/repository"
	"forgeos_backend/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func connectDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

func seedWallet(t *testing.T, db *pgxpool.Pool, points int64) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	wallet := fmt.Sprintf("0x%040x", time.Now().UnixNano())
	repo := repository.NewProfileRepository(db)
	p := &domain.UserProfile{
		WalletAddress: wallet,
		ChainID:       137,
		SecurityLevel: domain.SecurityLevelNone,
		Points:        points,
		PublicKey:     hex.EncodeToString(pub),
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return wallet, priv
}

func scoreServiceFor(db *pgxpool.Pool, minCompletionMs int64) *service.ScoreService {
	return service.NewScoreService(db,
		repository.NewSessionRepository(db),
		repository.NewProfileRepository(db),
		repository.NewTransactionRepository(db),
		service.NewAuditService(db),
		minCompletionMs,
	)
}

func signSubmission(priv ed25519.PrivateKey, session *domain.GameSession, score, ts int64) string {
	msg := chain.SubmissionMessage(session.ID, session.Nonce, score, ts)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, msg))
}

func TestScoreFlow_AcceptAndReplay(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 0)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 0) // no floor so the test doesn't sleep

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	ts := session.StartedAt.UnixMilli() + 1500
	sig := signSubmission(priv, session, 4200, ts)

	balance, err := scores.Submit(ctx, wallet, session.ID, 4200, ts, sig)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if balance != 4200 {
		t.Fatalf("balance = %d, want 4200", balance)
	}

	// replay of the consumed session must be rejected and not pay again
	if _, err := scores.Submit(ctx, wallet, session.ID, 4200, ts, sig); !errors.Is(err, service.ErrInvalidSession) {
		t.Fatalf("replay: expected ErrInvalidSession, got %v", err)
	}

	repo := repository.NewProfileRepository(db)
	final, err := repo.GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if final != 4200 {
		t.Fatalf("balance after replay = %d, want 4200", final)
	}
}

func TestScoreFlow_SpeedHackLeavesSessionValid(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 0)
	sessionRepo := repository.NewSessionRepository(db)
	sessions := service.NewSessionService(sessionRepo, repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 60_000) // one-minute floor nothing can beat

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	ts := time.Now().UnixMilli()
	sig := signSubmission(priv, session, 100, ts)

	if _, err := scores.Submit(ctx, wallet, session.ID, 100, ts, sig); !errors.Is(err, service.ErrSpeedHack) {
		t.Fatalf("expected ErrSpeedHack, got %v", err)
	}

	// session survives the rejection for a legitimate retry
	got, err := sessionRepo.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.IsValid {
		t.Fatalf("session should remain valid after a speed-hack rejection")
	}

	repo := repository.NewProfileRepository(db)
	balance, err := repo.GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 after rejection", balance)
	}
}

func TestScoreFlow_BadSignature(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, _ := seedWallet(t, db, 0)
	_, otherPriv, _ := ed25519.GenerateKey(nil)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 0)

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	ts := session.StartedAt.UnixMilli() + 1500
	sig := signSubmission(otherPriv, session, 100, ts)

	if _, err := scores.Submit(ctx, wallet, session.ID, 100, ts, sig); !errors.Is(err, service.ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

// A real client only ever sees the start-session JSON, so the response
// must carry everything the wallet needs to sign a submission.
func TestScoreFlow_SignedFromWireSession(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 0)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 0)

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	body, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}

	var wire struct {
		SessionID string    `json:"session_id"`
		Nonce     string    `json:"nonce"`
		StartedAt time.Time `json:"started_at"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if wire.Nonce == "" {
		t.Fatalf("response does not disclose the nonce: %s", body)
	}

	ts := wire.StartedAt.UnixMilli() + 1200
	msg := chain.SubmissionMessage(wire.SessionID, wire.Nonce, 700, ts)
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, msg))

	balance, err := scores.Submit(ctx, wallet, wire.SessionID, 700, ts, sig)
	if err != nil {
		t.Fatalf("submit signed from wire fields: %v", err)
	}
	if balance != 700 {
		t.Fatalf("balance = %d, want 700", balance)
	}
}

// The completion floor judges the client's claimed play time, not the
// server round trip: a submission stamped just past the floor is
// accepted even when it arrives immediately.
func TestScoreFlow_ClientPlayTimeSatisfiesFloor(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 0)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 2000)

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	ts := session.StartedAt.UnixMilli() + 2001
	sig := signSubmission(priv, session, 900, ts)

	if _, err := scores.Submit(ctx, wallet, session.ID, 900, ts, sig); err != nil {
		t.Fatalf("submission past the floor rejected: %v", err)
	}

	// one millisecond short of the floor fails
	session2, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start second session: %v", err)
	}
	ts = session2.StartedAt.UnixMilli() + 1999
	sig = signSubmission(priv, session2, 900, ts)
	if _, err := scores.Submit(ctx, wallet, session2.ID, 900, ts, sig); !errors.Is(err, service.ErrSpeedHack) {
		t.Fatalf("expected ErrSpeedHack, got %v", err)
	}
}

func TestScoreFlow_ConcurrentSubmitCreditsOnce(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, priv := seedWallet(t, db, 0)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)
	scores := scoreServiceFor(db, 0)

	session, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	ts := session.StartedAt.UnixMilli() + 1000
	sig := signSubmission(priv, session, 1000, ts)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = scores.Submit(ctx, wallet, session.ID, 1000, ts, sig)
		}(i)
	}
	wg.Wait()

	var ok, replayed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrInvalidSession):
			replayed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || replayed != 1 {
		t.Fatalf("got %d accepted and %d rejected, want exactly one of each", ok, replayed)
	}

	balance, err := repository.NewProfileRepository(db).GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance = %d, want a single 1000 credit", balance)
	}
}

func TestSessionStart_UnknownWallet(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	sessions := service.NewSessionService(repository.NewSessionRepository(db), repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)

	wallet := fmt.Sprintf("0x%040x", time.Now().UnixNano())
	if _, err := sessions.Start(ctx, wallet, 1); !errors.Is(err, service.ErrUnknownWallet) {
		t.Fatalf("expected ErrUnknownWallet, got %v", err)
	}
}

func TestScoreFlow_NewSessionInvalidatesPrevious(t *testing.T) {
	db := connectDB(t)
	ctx := context.Background()

	wallet, _ := seedWallet(t, db, 0)
	sessionRepo := repository.NewSessionRepository(db)
	sessions := service.NewSessionService(sessionRepo, repository.NewProfileRepository(db), service.NewAuditService(db), 15*time.Minute)

	first, err := sessions.Start(ctx, wallet, 1)
	if err != nil {
		t.Fatalf("start first session: %v", err)
	}
	if _, err := sessions.Start(ctx, wallet, 2); err != nil {
		t.Fatalf("start second session: %v", err)
	}

	got, err := sessionRepo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first session: %v", err)
	}
	if got.IsValid {
		t.Fatalf("first session should be invalidated by the second start")
	}
}
