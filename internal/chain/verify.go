package chain

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Wallet signature verification. The wallet registers an ed25519 public
// key at login; score submissions and claims carry a signature over a
// canonical message so the server can verify the caller holds the key.

// SubmissionMessage builds the canonical bytes a wallet signs for a
// score submission
func SubmissionMessage(sessionID string, nonce string, score int64, clientTimestamp int64) []byte {
	var message []byte
	message = append(message, []byte("score-submit-v1/")...)
	message = append(message, []byte(sessionID)...)
	message = append(message, []byte("/")...)
	message = append(message, []byte(nonce)...)

	num := make([]byte, 8)
	binary.LittleEndian.PutUint64(num, uint64(score))
	message = append(message, num...)

	binary.LittleEndian.PutUint64(num, uint64(clientTimestamp))
	message = append(message, num...)

	hash := sha256.Sum256(message)
	return hash[:]
}

// ClaimMessage builds the canonical bytes a wallet signs for a claim
func ClaimMessage(walletAddress string, amount int64, gasStrategy string) []byte {
	var message []byte
	message = append(message, []byte("claim-v1/")...)
	message = append(message, []byte(strings.ToLower(walletAddress))...)

	num := make([]byte, 8)
	binary.LittleEndian.PutUint64(num, uint64(amount))
	message = append(message, num...)

	message = append(message, []byte(gasStrategy)...)

	hash := sha256.Sum256(message)
	return hash[:]
}

// VerifySignature checks a base64 ed25519 signature over message against
// a hex-encoded public key
func VerifySignature(publicKeyHex string, message []byte, signature string) error {
	pubKeyBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key format: %w", err)
	}

	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return errors.New("invalid public key size")
	}

	signatureBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("invalid signature format: %w", err)
	}

	if !ed25519.Verify(pubKeyBytes, message, signatureBytes) {
		return errors.New("invalid signature")
	}

	return nil
}

// ValidateAddress checks the 0x-prefixed 20-byte hex address format
func ValidateAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	_, err := hex.DecodeString(address[2:])
	return err == nil
}

// NormalizeAddress lowercases an address so it can be used as a key
func NormalizeAddress(address string) (string, error) {
	if !ValidateAddress(address) {
		return "", errors.New("invalid address format")
	}
	return strings.ToLower(address), nil
}

// ValidatePublicKey checks a hex ed25519 public key
func ValidatePublicKey(publicKeyHex string) bool {
	pubKeyBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	return len(pubKeyBytes) == ed25519.PublicKeySize
}
