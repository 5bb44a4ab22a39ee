package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestValidateJWTRoundTrip(t *testing.T) {
	tokenString := signHS256(t, "test-secret", "user-123", time.Hour)

	claims, err := ValidateJWT(tokenString, "test-secret")
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("subject = %q, want user-123", claims.Subject)
	}
	if claims.Email != "user-123@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	tokenString := signHS256(t, "test-secret", "user-123", time.Hour)

	if _, err := ValidateJWT(tokenString, "other-secret"); err == nil {
		t.Fatal("expected validation failure with the wrong secret")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	tokenString := signHS256(t, "test-secret", "user-123", -time.Minute)

	if _, err := ValidateJWT(tokenString, "test-secret"); err == nil {
		t.Fatal("expected validation failure for an expired token")
	}
}

func TestValidateJWTGarbage(t *testing.T) {
	if _, err := ValidateJWT("not-a-token", "test-secret"); err == nil {
		t.Fatal("expected failure for malformed input")
	}
}
