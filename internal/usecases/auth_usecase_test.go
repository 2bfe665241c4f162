package usecases

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestParseToken(t *testing.T) {
	uc := NewAuthUsecase(nil, "test-secret")

	good := mintToken(t, "test-secret", jwt.MapClaims{
		"user_id": float64(42),
		"admin":   true,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, admin, err := uc.ParseToken(good)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if userID != 42 || !admin {
		t.Errorf("got user_id=%d admin=%v, want 42 true", userID, admin)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	uc := NewAuthUsecase(nil, "test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", mintToken(t, "other-secret", jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", mintToken(t, "test-secret", jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing user_id", mintToken(t, "test-secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := uc.ParseToken(tt.token); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
