package auth_test

import (
	"context"
	"testing"

	"backend/internal/auth"
	"backend/internal/config"
)

func newTestJWTService() *auth.JWTService {
	cfg := config.AuthConfig{
		JWTSecret:          "test-secret-key-for-unit-tests",
		Issuer:             "raghub-test",
		AccessExpiryHours:  2,
		RefreshExpiryHours: 168,
	}
	return auth.NewJWTService(cfg, nil)
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair("user-1", "alice")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}
	if pair.TokenType != "Bearer" {
		t.Fatalf("unexpected token type: %s", pair.TokenType)
	}

	claims, err := svc.ValidateToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Fatalf("unexpected username: %s", claims.Username)
	}
	if claims.TokenType != "access" {
		t.Fatalf("unexpected token type: %s", claims.TokenType)
	}
}

func TestJWTService_ValidateRejectsGarbage(t *testing.T) {
	svc := newTestJWTService()

	if _, err := svc.ValidateToken(context.Background(), "not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestJWTService_ValidateRejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := auth.NewJWTService(config.AuthConfig{
		JWTSecret:          "a-different-secret",
		Issuer:             "raghub-test",
		AccessExpiryHours:  2,
		RefreshExpiryHours: 168,
	}, nil)

	pair, err := other.GenerateTokenPair("user-2", "bob")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := svc.ValidateToken(context.Background(), pair.AccessToken); err == nil {
		t.Fatalf("expected signature validation to fail")
	}
}

func TestJWTService_RefreshAccessToken(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair("user-3", "carol")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	fresh, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(context.Background(), fresh.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-3" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
}

func TestJWTService_RefreshRejectsAccessToken(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair("user-4", "dave")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.AccessToken); err == nil {
		t.Fatalf("expected refresh with access token to be rejected")
	}
}

func TestExtractTokenFromBearer(t *testing.T) {
	if got := auth.ExtractTokenFromBearer("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("unexpected token: %s", got)
	}
	// 无前缀时原样返回
	if got := auth.ExtractTokenFromBearer("abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("unexpected token: %s", got)
	}
}
