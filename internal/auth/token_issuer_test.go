package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSigningSecret = "test-secret"
	testIssuer        = "admitpath-auth"
	testAudience      = "admitpath-api"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		Audience:      testAudience,
		TokenTTL:      30 * time.Minute,
		Clock:         clock,
	})
}

func TestIssueTokenRoundTripPreservesRole(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	issuer := newTestIssuer(func() time.Time { return now })

	token, expiresIn, err := issuer.IssueToken(context.Background(), Principal{UserID: "user-1", Role: RoleConsultant})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if expiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry seconds: %d", expiresIn)
	}

	principal, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if principal.UserID != "user-1" {
		t.Fatalf("unexpected subject: %s", principal.UserID)
	}
	if principal.Role != RoleConsultant {
		t.Fatalf("unexpected role: %s", principal.Role)
	}
}

func TestIssueTokenRejectsMissingSubject(t *testing.T) {
	issuer := newTestIssuer(time.Now)
	if _, _, err := issuer.IssueToken(context.Background(), Principal{Role: RoleStudent}); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}

func TestIssueTokenRejectsUnknownRole(t *testing.T) {
	issuer := newTestIssuer(time.Now)
	if _, _, err := issuer.IssueToken(context.Background(), Principal{UserID: "user-1", Role: "counselor"}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	issued := time.Unix(1700000000, 0).UTC()
	issuer := newTestIssuer(func() time.Time { return issued })
	token, _, err := issuer.IssueToken(context.Background(), Principal{UserID: "user-1", Role: RoleStudent})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	later := newTestIssuer(func() time.Time { return issued.Add(2 * time.Hour) })
	if _, err := later.ValidateToken(token); err == nil {
		t.Fatalf("expected validation to fail after expiry")
	}
}

func TestValidateTokenRejectsMissingRoleClaim(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    testIssuer,
		Audience:  []string{testAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := bare.SignedString([]byte(testSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	issuer := newTestIssuer(func() time.Time { return now })
	if _, err := issuer.ValidateToken(signed); err == nil {
		t.Fatalf("expected validation to fail without role claim")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
		wantErr  bool
	}{
		{input: "student", expected: RoleStudent},
		{input: " Consultant ", expected: RoleConsultant},
		{input: "admin", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		role, err := ParseRole(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if role != tt.expected {
			t.Fatalf("unexpected role for %q: %s", tt.input, role)
		}
	}
}
