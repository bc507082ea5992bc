package security_test

import (
	"testing"

	"github.com/driftlabs/driftpay-backend/pkg/config"
	"github.com/driftlabs/driftpay-backend/pkg/security"
)

func TestHashAndVerifySecret(t *testing.T) {
	cfg := config.SecretsConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashSecret("very-secure-client-secret", cfg)
	if err != nil {
		t.Fatalf("HashSecret returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashSecret returned empty string")
	}

	ok, err := security.VerifySecret("very-secure-client-secret", hash)
	if err != nil {
		t.Fatalf("VerifySecret returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifySecret failed for the correct secret")
	}

	ok, err = security.VerifySecret("bogus-secret", hash)
	if err != nil {
		t.Fatalf("VerifySecret returned error for invalid secret: %v", err)
	}
	if ok {
		t.Fatal("VerifySecret returned true for incorrect secret")
	}
}

func TestVerifySecretBadHash(t *testing.T) {
	if _, err := security.VerifySecret("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGenerateClientSecret(t *testing.T) {
	secret, err := security.GenerateClientSecret(40)
	if err != nil {
		t.Fatalf("GenerateClientSecret returned error: %v", err)
	}
	if len(secret) != 40 {
		t.Fatalf("expected 40 characters, got %d", len(secret))
	}

	other, err := security.GenerateClientSecret(40)
	if err != nil {
		t.Fatalf("GenerateClientSecret returned error: %v", err)
	}
	if secret == other {
		t.Fatal("expected two generated secrets to differ")
	}
}
