package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/creatorlink/creatorlink/internal/model"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Issue("user-1", "creator@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	caller, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if caller.UserID != "user-1" || caller.Email != "creator@example.com" {
		t.Errorf("unexpected caller %+v", caller)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")

	expired, _ := v.Issue("user-1", "", -time.Hour)
	wrongKey, _ := NewVerifier("other-secret").Issue("user-1", "", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong key", wrongKey, ErrInvalidToken},
		{"no expiry", noExpiry, ErrInvalidToken},
		{"no subject", noSubject, ErrInvalidToken},
		{"wrong algorithm", wrongAlg, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	if CallerFromContext(ctx) != nil {
		t.Fatal("expected nil caller on empty context")
	}
	if UserIDFromContext(ctx) != "" {
		t.Fatal("expected empty user id on empty context")
	}

	ctx = ContextWithCaller(ctx, &model.Caller{UserID: "user-9"})
	if got := UserIDFromContext(ctx); got != "user-9" {
		t.Errorf("UserIDFromContext() = %q, want user-9", got)
	}
}
