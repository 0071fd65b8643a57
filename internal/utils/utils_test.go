package utils

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "admin", 5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.UserID != 42 || p.Role != "admin" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "user", 5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseAccessToken("other", tok.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "user", -1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseAccessToken("secret", tok.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestParseAccessTokenNumericSub(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "role": "user"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	p, err := ParseAccessToken("k", raw)
	if err != nil || p.UserID != 7 {
		t.Fatalf("numeric sub not accepted: %+v %v", p, err)
	}
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(1)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("unexpected raw length %d", len(rt.Raw))
	}
	if HashRefreshRaw(rt.Raw) != HashRefreshRaw(rt.Raw) || HashRefreshRaw(rt.Raw) == rt.Raw {
		t.Fatalf("hash must be deterministic and differ from raw")
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(h, "correct horse") || VerifyPassword(h, "wrong") {
		t.Fatalf("verify mismatch")
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short", bcrypt.MinCost); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}
