package service

import (
	"testing"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWTWithSecret("test-secret")

	token, err := GenerateJWT("0xabc1111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	wallet, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if wallet != "0xabc1111111111111111111111111111111111111" {
		t.Fatalf("unexpected wallet: %s", wallet)
	}
}

func TestParseJWT_Garbage(t *testing.T) {
	InitJWTWithSecret("test-secret")

	if _, err := ParseJWT("not-a-token"); err == nil {
		t.Fatalf("expected error for garbage token")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	InitJWTWithSecret("secret-a")
	token, err := GenerateJWT("0xabc1111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	InitJWTWithSecret("secret-b")
	if _, err := ParseJWT(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
