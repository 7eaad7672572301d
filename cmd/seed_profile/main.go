package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"log"
	"os"

	"forgeos_backend/internal/db"
	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/repository"
	"forgeos_backend/internal/service"
)

func main() {
	// expects DATABASE_URL env var
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewProfileRepository(pool)
	ctx := context.Background()

	wallet := os.Getenv("SEED_WALLET")
	if wallet == "" {
		wallet = "0x00000000000000000000000000000000000dead1"
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("generate keypair: %v", err)
	}

	existing, err := repo.GetByWallet(ctx, wallet)
	var p *domain.UserProfile
	if err == nil {
		p = existing
		log.Printf("profile already exists wallet=%s points=%d\n", p.WalletAddress, p.Points)
		if err := repo.TouchLogin(ctx, wallet, hex.EncodeToString(pub)); err != nil {
			log.Fatalf("update public key failed: %v", err)
		}
	} else {
		p = &domain.UserProfile{
			WalletAddress: wallet,
			ChainID:       137,
			SecurityLevel: domain.SecurityLevelNone,
			Points:        500,
			PublicKey:     hex.EncodeToString(pub),
		}
		if err := repo.Create(ctx, p); err != nil {
			log.Fatalf("create profile failed: %v", err)
		}
		log.Printf("profile created wallet=%s\n", p.WalletAddress)
	}

	// initialize JWT and print credentials for manual testing
	service.InitJWT()
	token, err := service.GenerateJWT(wallet)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	log.Printf("token: %s\n", token)
	log.Printf("public_key: %s\n", hex.EncodeToString(pub))
	log.Printf("private_key: %s\n", hex.EncodeToString(priv))
}
