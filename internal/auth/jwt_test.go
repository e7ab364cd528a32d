package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")
	id := uuid.New()

	token, err := j.Sign(id, "Asha", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := j.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != id.String() {
		t.Fatalf("user id = %q, want %q", claims.UserID, id)
	}
	if claims.Name != "Asha" {
		t.Fatalf("name = %q", claims.Name)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign(uuid.New(), "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewJWT("secret-b").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	j := NewJWT("test-secret")
	token, err := j.Sign(uuid.New(), "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := j.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	j := NewJWT("test-secret")
	for _, tok := range []string{"", "not.a.jwt", "aaaa"} {
		if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}
