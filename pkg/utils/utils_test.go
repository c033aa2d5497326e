package utils

import (
	"testing"
)

func TestJWT(t *testing.T) {
	secret := "supersecret"
	userID := "4f7c5f1e-9a1d-4b1a-8f2d-1c2e3d4f5a6b"

	token, err := GenerateToken(userID, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "secret-a")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ValidateToken(token, "secret-b"); err == nil {
		t.Errorf("Expected validation to fail with wrong secret")
	}
}

func TestJWTGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token", "secret"); err == nil {
		t.Errorf("Expected validation to fail for malformed token")
	}
}
