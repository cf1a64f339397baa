package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, "corridord", 15*time.Minute)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}
	return m
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	if _, err := NewJWTManager("too-short", "corridord", time.Minute); !errors.Is(err, ErrShortSecret) {
		t.Errorf("Expected ErrShortSecret, got %v", err)
	}
}

func TestJWTManager_GenerateToken(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name      string
		subject   string
		role      string
		wantError error
	}{
		{name: "admin token", subject: "ops-bot", role: RoleAdmin},
		{name: "viewer token", subject: "dashboard", role: RoleViewer},
		{name: "empty subject", subject: "", role: RoleAdmin, wantError: ErrEmptySubject},
		{name: "unknown role", subject: "ops-bot", role: "root", wantError: ErrInvalidRole},
		{name: "empty role", subject: "ops-bot", role: "", wantError: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.GenerateToken(tt.subject, tt.role)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("Expected %v, got %v", tt.wantError, err)
				}
				if token != "" {
					t.Errorf("Expected empty token on error, got %s", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if strings.Count(token, ".") != 2 {
				t.Errorf("Token is not in header.payload.signature form: %s", token)
			}
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m := newTestManager(t)
	token, err := m.GenerateToken("ops-bot", RoleOperator)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.Subject != "ops-bot" {
		t.Errorf("Expected subject ops-bot, got %s", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Expected role operator, got %s", claims.Role)
	}
	if claims.Issuer != "corridord" {
		t.Errorf("Expected issuer corridord, got %s", claims.Issuer)
	}
	if !claims.HasRole(RoleAdmin, RoleOperator) {
		t.Error("Expected HasRole to match operator")
	}
	if claims.HasRole(RoleAdmin) {
		t.Error("Operator must not pass an admin-only check")
	}
}

func TestJWTManager_ValidateToken_Rejects(t *testing.T) {
	m := newTestManager(t)

	other, err := NewJWTManager(strings.Repeat("x", 40), "corridord", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.GenerateToken("ops-bot", RoleAdmin)

	wrongIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Minute)
	misissued, _ := wrongIssuer.GenerateToken("ops-bot", RoleAdmin)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"wrong issuer", misissued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(context.Background(), tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := newTestManager(t)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateToken("ops-bot", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestClaimsContext(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("Expected no claims on empty context")
	}
	c := &Claims{Role: RoleAdmin}
	got, ok := ClaimsFromContext(WithClaims(context.Background(), c))
	if !ok || got != c {
		t.Error("Expected claims to round-trip through context")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer  abc":        "abc",
		"Basic dXNlcg==":     "",
		"":                   "",
		"Bearer":             "",
	}
	for header, want := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := BearerToken(r); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
