package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", true, 5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || !claims.Admin || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := ParseAccessToken("other", tok.Token); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("wrong secret: expected ErrInvalidAccessToken, got %v", err)
	}
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	expired, _ := NewAccessToken("secret", "user-1", false, -1)
	noIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1", "iss": Issuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, raw := range map[string]string{"expired": expired.Token, "no issuer": noIssuer, "alg none": noneAlg} {
		if _, err := ParseAccessToken("secret", raw); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken(1)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("expected distinct 96-char tokens, got %q %q", a.Raw, b.Raw)
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
		t.Fatal("hash must be deterministic and distinct")
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "correct horse") || VerifyPassword(h, "wrong") {
		t.Fatal("verify mismatch")
	}
}

func TestPasswordLimits(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", MaxPasswordBytes+1), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	h, err := HashPassword("correct horse", 99)
	if err != nil {
		t.Fatalf("out of range cost should fall back: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(h)); cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", cost)
	}
	if BurnPasswordCheck("anything") {
		t.Fatal("burn check must always fail")
	}
}
