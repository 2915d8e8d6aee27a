package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	"github.com/google/uuid"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rentquote",
		ExpirationMinutes: minutes,
	}
}

func approvedPayload(role enums.UserRole) AccessTokenPayload {
	return AccessTokenPayload{
		UserID: uuid.New(),
		Email:  " Ops@Example.com ",
		Role:   role,
		Status: enums.UserStatusApproved,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	payload := approvedPayload(enums.UserRoleAdmin)
	payload.JTI = "access-1"

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != payload.UserID {
		t.Fatalf("expected user_id %s, got %s", payload.UserID, claims.UserID)
	}
	if claims.Email != "ops@example.com" {
		t.Fatalf("expected normalized email, got %q", claims.Email)
	}
	if !claims.IsAdmin() || claims.Status != enums.UserStatusApproved {
		t.Fatalf("unexpected role/status %s/%s", claims.Role, claims.Status)
	}
	if claims.AccessID() != "access-1" {
		t.Fatalf("expected jti access-1, got %q", claims.AccessID())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), approvedPayload(enums.UserRoleUser))
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.AccessID()); err != nil {
		t.Fatalf("expected generated uuid jti, got %q", claims.AccessID())
	}
	if claims.IsAdmin() {
		t.Fatal("regular user should not be admin")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), approvedPayload(enums.UserRoleUser))
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Secret = "another"
	if _, err = ParseAccessToken(other, token); err == nil {
		t.Fatal("expected secret mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), approvedPayload(enums.UserRoleUser))
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !IsExpired(err) || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("expected expired token to parse for refresh, got %v", err)
	}
	if claims.AccessID() == "" {
		t.Fatal("expected jti on expired token")
	}
}

func TestMintAccessTokenRejectsInvalidPayload(t *testing.T) {
	cfg := testJWTConfig(5)

	invalidRole := approvedPayload("")
	if _, err := MintAccessToken(cfg, time.Now(), invalidRole); err == nil {
		t.Fatal("expected invalid role error")
	}

	pending := approvedPayload(enums.UserRoleUser)
	pending.Status = enums.UserStatusPending
	if _, err := MintAccessToken(cfg, time.Now(), pending); err == nil {
		t.Fatal("expected pending user to be refused a token")
	}

	missingUser := approvedPayload(enums.UserRoleUser)
	missingUser.UserID = uuid.Nil
	if _, err := MintAccessToken(cfg, time.Now(), missingUser); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-15*time.Minute-10*time.Second), approvedPayload(enums.UserRoleAdmin))
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("token inside the skew window should parse: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def":    "abc.def",
		"bearer   abc.def ": "abc.def",
		"Basic dXNlcg==":    "",
		"abc.def":           "",
		"":                  "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
