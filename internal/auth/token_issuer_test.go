package auth

import (
	"errors"
	"testing"
	"time"
)

func TestNewTokenIssuerRequiresSecretAndIssuer(t *testing.T) {
	_, err := NewTokenIssuer(TokenIssuerConfig{Issuer: "jisc-api"})
	if !errors.Is(err, ErrMissingSigningSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}

	_, err = NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret"), Issuer: " "})
	if !errors.Is(err, ErrMissingIssuer) {
		t.Fatalf("expected missing issuer error, got %v", err)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "jisc-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, err := issuer.IssueSessionToken("user-123", "a@example.com")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}

	claims, err := issuer.VerifySessionToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
}

func TestSessionTokenExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt

	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("boundary-secret"),
		Issuer:        "jisc-api",
		SessionTTL:    7 * 24 * time.Hour,
		Clock:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, err := issuer.IssueSessionToken("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}

	now = issuedAt.Add(time.Second)
	if _, err := issuer.VerifySessionToken(tokenString); err != nil {
		t.Fatalf("expected token valid one second after issuance: %v", err)
	}

	now = issuedAt.Add(7*24*time.Hour + time.Second)
	_, err = issuer.VerifySessionToken(tokenString)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error past the window, got %v", err)
	}
}

func TestMagicTokenCarriesEmailAndExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt

	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("magic-secret"),
		Issuer:        "jisc-api",
		MagicTTL:      15 * time.Minute,
		Clock:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresAt, err := issuer.IssueMagicToken("a@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}
	if want := issuedAt.Add(15 * time.Minute); !expiresAt.Equal(want) {
		t.Fatalf("unexpected expiry: got %v, want %v", expiresAt, want)
	}

	claims, err := issuer.VerifyMagicToken(tokenString)
	if err != nil {
		t.Fatalf("expected verification success: %v", err)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("unexpected email claim %q", claims.Email)
	}

	now = issuedAt.Add(15*time.Minute + time.Second)
	_, err = issuer.VerifyMagicToken(tokenString)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("class-secret"),
		Issuer:        "jisc-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	magicToken, _, err := issuer.IssueMagicToken("a@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}
	if _, err := issuer.VerifySessionToken(magicToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected magic token rejected as session credential, got %v", err)
	}

	sessionToken, err := issuer.IssueSessionToken("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}
	if _, err := issuer.VerifyMagicToken(sessionToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected session token rejected as magic link, got %v", err)
	}
}

func TestVerifyDistinguishesInvalidFromExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("one-secret"),
		Issuer:        "jisc-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = issuer.VerifySessionToken("not.a.token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error for garbage input, got %v", err)
	}

	other, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "jisc-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	foreign, err := other.IssueSessionToken("user-1", "a@example.com")
	if err != nil {
		t.Fatalf("unexpected issuance error: %v", err)
	}
	_, err = issuer.VerifySessionToken(foreign)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error for wrong signature, got %v", err)
	}
	if errors.Is(err, ErrExpiredToken) {
		t.Fatalf("signature failure must not be reported as expiry")
	}
}
